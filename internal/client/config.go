package client

import (
	"time"

	"github.com/vovakirdan/flowchat/internal/proto"
)

// Config holds worker transport settings.
type Config struct {
	// Network is proto.TransportTCP or proto.TransportUDP.
	Network     string        `mapstructure:"network" yaml:"network"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	// IOTimeout bounds the write and the read of one round trip.
	IOTimeout time.Duration `mapstructure:"io_timeout" yaml:"io_timeout"`
}

// DefaultConfig returns TCP with five second timeouts.
func DefaultConfig() Config {
	return Config{
		Network:     proto.TransportTCP,
		DialTimeout: 5 * time.Second,
		IOTimeout:   5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Network == "" {
		c.Network = d.Network
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.IOTimeout <= 0 {
		c.IOTimeout = d.IOTimeout
	}
	return c
}
