// Package power switches the track power and watches the track current for overloads.
package power

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultSampleInterval = 10 * time.Millisecond
	DefaultSmoothing      = 0.01
	DefaultLimit          = 300
)

// Track is the on/off state of the booster output. It starts switched off.
type Track struct {
	on atomic.Bool
}

func NewTrack() *Track {
	return &Track{}
}

func (t *Track) On() bool {
	return t.set(true)
}

func (t *Track) Off() bool {
	return t.set(false)
}

func (t *Track) IsOn() bool {
	return t.on.Load()
}

// set returns true if the state has changed
func (t *Track) set(on bool) bool {
	if t.on.Swap(on) == on {
		return false
	}
	logrus.Infof("Track power %s", onOff(on))
	return true
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// Sampler reads the raw current sense value
type Sampler interface {
	Sample() (float64, error)
}

type Option func(*Monitor)

func WithSmoothing(factor float64) Option {
	return func(m *Monitor) {
		m.smoothing = factor
	}
}

func WithLimit(limit float64) Option {
	return func(m *Monitor) {
		m.limit = limit
	}
}

func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		m.interval = interval
	}
}

// WithOverload sets a callback run when the monitor cuts the power off
func WithOverload(fn func(value float64)) Option {
	return func(m *Monitor) {
		m.onOverload = fn
	}
}

// Monitor keeps an exponentially smoothed track current and switches the track off above the limit
type Monitor struct {
	track      *Track
	smoothing  float64
	limit      float64
	interval   time.Duration
	onOverload func(value float64)

	value float64
}

func NewMonitor(track *Track, opts ...Option) *Monitor {
	m := &Monitor{
		track:     track,
		smoothing: DefaultSmoothing,
		limit:     DefaultLimit,
		interval:  DefaultSampleInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Value returns the smoothed current
func (m *Monitor) Value() float64 {
	return m.value
}

// Sample feeds a raw reading, returns false when an overload was detected
func (m *Monitor) Sample(raw float64) bool {
	m.value = raw*m.smoothing + m.value*(1.0-m.smoothing)
	if m.value <= m.limit {
		return true
	}
	if m.track.Off() {
		logrus.Warnf("Overload (%.1f > %.1f), track power switched off", m.value, m.limit)
		if m.onOverload != nil {
			m.onOverload(m.value)
		}
	}
	return false
}

// Run samples at the configured interval until the context is done
func (m *Monitor) Run(ctx context.Context, s Sampler) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			raw, err := s.Sample()
			if err != nil {
				return fmt.Errorf("cannot sample track current: %w", err)
			}
			m.Sample(raw)
		}
	}
}

// FileSampler reads a single number from a file, e.g. an IIO ADC channel in sysfs
type FileSampler struct {
	Path string
}

func (f FileSampler) Sample() (float64, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid current sense value in %s: %w", f.Path, err)
	}
	return value, nil
}
