package registry

import "github.com/vovakirdan/kurve/internal/core"

func init() {
	Register("classic", "Classic (empty arena)", func(int, int) []core.Rect {
		return nil
	})
	Register("pillars", "Pillars", pillars)
	Register("box", "Box in the middle", box)
}

// pillars places four 2x2 blocks at the quarter points.
func pillars(w, h int) []core.Rect {
	var out []core.Rect
	for _, fx := range []int{1, 3} {
		for _, fy := range []int{1, 3} {
			out = append(out, core.NewRect(w*fx/4-1, h*fy/4-1, 2, 2))
		}
	}
	return out
}

// box places a hollow square in the centre, open on the left and right.
func box(w, h int) []core.Rect {
	bw, bh := w/4, h/3
	x, y := (w-bw)/2, (h-bh)/2
	return []core.Rect{
		core.NewRect(x, y, bw, 1),
		core.NewRect(x, y+bh-1, bw, 1),
	}
}
