// Package capability answers, once per process, whether user-granted
// directories and archives can be mounted.
package capability

import (
	"os"
	"sync"
)

// Capabilities is the detected set of local mount sources.
type Capabilities struct {
	Directory bool `json:"directory"`
	Archive   bool `json:"archive"`
}

// Any reports whether some local source is available.
func (c Capabilities) Any() bool { return c.Directory || c.Archive }

// DetectFunc computes the capabilities of the current environment.
type DetectFunc func() Capabilities

// Probe evaluates its DetectFunc on first use and caches the answer.
type Probe struct {
	once   sync.Once
	detect DetectFunc
	caps   Capabilities
}

func NewProbe(detect DetectFunc) *Probe {
	if detect == nil {
		detect = func() Capabilities { return Capabilities{} }
	}
	return &Probe{detect: detect}
}

// Static returns a probe with fixed capabilities.
func Static(c Capabilities) *Probe {
	return NewProbe(func() Capabilities { return c })
}

// Capabilities returns the detected set, running detection on first call.
func (p *Probe) Capabilities() Capabilities {
	p.once.Do(func() { p.caps = p.detect() })
	return p.caps
}

func (p *Probe) Directory() bool { return p.Capabilities().Directory }
func (p *Probe) Archive() bool   { return p.Capabilities().Archive }

// Detect reports local directory access when enabled and the host
// filesystem is reachable, and archive access whenever enabled.
func Detect(enabled bool) DetectFunc {
	return func() Capabilities {
		if !enabled {
			return Capabilities{}
		}
		return Capabilities{Directory: hostReachable(), Archive: true}
	}
}

func hostReachable() bool {
	wd, err := os.Getwd()
	if err != nil {
		return false
	}
	info, err := os.Stat(wd)
	return err == nil && info.IsDir()
}
