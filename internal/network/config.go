// Package network carries kurve sessions over TCP using the protocol
// package's framing.
package network

import (
	"net"
	"strings"
	"time"

	"github.com/vovakirdan/kurve/internal/config"
	"github.com/vovakirdan/kurve/internal/core"
)

// DefaultPort is used when an address has no port.
const DefaultPort = "7777"

// Config holds transport settings.
type Config struct {
	// Address to bind (host) or connect to (client)
	Address string

	// Connection limits
	MaxPeers int

	// Timing
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// Buffer sizes
	BufferSize    int
	SendQueueSize int
}

// DefaultConfig returns the transport defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:          ":" + DefaultPort,
		MaxPeers:         core.MaxPlayers,
		ConnectTimeout:   5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       64 * 1024,
		SendQueueSize:    32,
	}
}

// FromKurve derives transport settings from the game configuration.
func FromKurve(cfg config.KurveConfig, addr string) *Config {
	c := DefaultConfig()
	if addr != "" {
		c.Address = WithDefaultPort(addr)
	}
	if cfg.Network.HandshakeTimeout > 0 {
		c.HandshakeTimeout = cfg.Network.HandshakeTimeout
		c.ConnectTimeout = cfg.Network.HandshakeTimeout
	}
	if cfg.Network.SendQueue > 0 {
		c.SendQueueSize = cfg.Network.SendQueue
	}
	return c
}

// WithDefaultPort appends DefaultPort to an address that has none.
func WithDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), DefaultPort)
}
