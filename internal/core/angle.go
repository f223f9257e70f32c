package core

import "math"

// Angle is a heading in tenths of a degree. Normalised headings lie in
// [0, FullTurn). Screen coordinates grow downward, so South is +90°.
type Angle int32

const (
	FullTurn    Angle = 3600
	HalfTurn    Angle = 1800
	QuarterTurn Angle = 900

	East  Angle = 0
	South Angle = QuarterTurn
	West  Angle = HalfTurn
	North Angle = HalfTurn + QuarterTurn
)

// quarterSine holds sin(θ) for θ in [0°, 90°] at 0.1° resolution.
// The other quadrants are derived by reflection so that
// Sin(a+HalfTurn) == -Sin(a) holds exactly.
var quarterSine [QuarterTurn + 1]Fixed

func init() {
	for i := range quarterSine {
		quarterSine[i] = FromFloat(math.Sin(float64(i) * math.Pi / float64(HalfTurn)))
	}
}

// Normalize wraps the angle into [0, FullTurn).
func (a Angle) Normalize() Angle {
	a %= FullTurn
	if a < 0 {
		a += FullTurn
	}
	return a
}

// Add returns the normalised sum a + d.
func (a Angle) Add(d Angle) Angle {
	return (a + d).Normalize()
}

// Degrees returns the angle in degrees (display only).
func (a Angle) Degrees() float64 {
	return float64(a) / 10
}

// AngleFromDegrees converts degrees to an Angle, rounding to 0.1°.
// The result is not normalised so it can express turn rates.
func AngleFromDegrees(deg float64) Angle {
	return Angle(math.Round(deg * 10))
}

// AngleTowards returns the heading pointing from one position to another.
// Used for spawning only; the tick loop never calls it.
func AngleTowards(from, to Vec) Angle {
	d := to.Sub(from)
	rad := math.Atan2(d.Y.Float(), d.X.Float())
	return AngleFromDegrees(rad * 180 / math.Pi).Normalize()
}

// Sin returns the sine of a as a Fixed value.
func Sin(a Angle) Fixed {
	a = a.Normalize()
	switch {
	case a <= QuarterTurn:
		return quarterSine[a]
	case a <= HalfTurn:
		return quarterSine[HalfTurn-a]
	case a <= HalfTurn+QuarterTurn:
		return -quarterSine[a-HalfTurn]
	default:
		return -quarterSine[FullTurn-a]
	}
}

// Cos returns the cosine of a as a Fixed value.
func Cos(a Angle) Fixed {
	return Sin(a + QuarterTurn)
}

// Direction returns the unit vector for heading a.
func Direction(a Angle) Vec {
	return Vec{X: Cos(a), Y: Sin(a)}
}

// Step returns the displacement of moving speed along heading a. Both
// components are even, which preserves the odd alignment of positions.
func Step(a Angle, speed Fixed) Vec {
	d := Direction(a)
	return Vec{X: d.X.Mul(speed).Even(), Y: d.Y.Mul(speed).Even()}
}
