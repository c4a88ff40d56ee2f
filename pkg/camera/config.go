package camera

import (
	"log/slog"
	"time"

	"github.com/teslashibe/camframe/pkg/video"
)

// Config holds the tuning parameters of a FrameSource.
// Use functional options (WithXxx) to override the defaults.
type Config struct {
	// === Capture ===
	Capture video.Options

	// === Frame buffer ===
	Width  int // output frame width in pixels
	Height int // output frame height in pixels

	// === Acquisition loop ===
	PollInterval time.Duration // sleep between iterations (~30Hz)
	FaultBackoff time.Duration // sleep after an unexpected fault
	StopTimeout  time.Duration // how long StopLoop waits for the loop to exit

	// === Encoding ===
	FrameQuality    int    // JPEG quality served by FrameJPEG
	SnapshotQuality int    // JPEG quality of snapshot files
	SnapshotDir     string // directory snapshot files are written to

	// Now is the clock used for frame timestamps and snapshot names.
	Now func() time.Time

	Logger  *slog.Logger
	Metrics *Metrics
}

// DefaultConfig returns the configuration used for RTSP cameras.
func DefaultConfig() Config {
	return Config{
		Capture:         video.DefaultOptions(),
		Width:           640,
		Height:          480,
		PollInterval:    33 * time.Millisecond,
		FaultBackoff:    500 * time.Millisecond,
		StopTimeout:     2 * time.Second,
		FrameQuality:    70,
		SnapshotQuality: 95,
		SnapshotDir:     ".",
		Now:             time.Now,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 16 || c.Height < 16 {
		errors = append(errors, "frame size must be at least 16x16")
	}
	if c.PollInterval <= 0 {
		errors = append(errors, "poll interval must be positive")
	}
	if c.FaultBackoff <= 0 {
		errors = append(errors, "fault backoff must be positive")
	}
	if c.StopTimeout <= 0 {
		errors = append(errors, "stop timeout must be positive")
	}
	if c.FrameQuality < 1 || c.FrameQuality > 100 {
		errors = append(errors, "frame quality must be between 1 and 100")
	}
	if c.SnapshotQuality < 1 || c.SnapshotQuality > 100 {
		errors = append(errors, "snapshot quality must be between 1 and 100")
	}
	if c.SnapshotDir == "" {
		errors = append(errors, "snapshot dir is required")
	}

	return errors
}

// Option is a functional option for configuring a FrameSource.
type Option func(*Config)

// WithCaptureOptions overrides the capture tuning.
func WithCaptureOptions(opts video.Options) Option {
	return func(c *Config) {
		c.Capture = opts
	}
}

// WithFrameSize sets the output resolution of buffered frames.
func WithFrameSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithPollInterval sets the sleep between loop iterations.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		c.PollInterval = d
	}
}

// WithFaultBackoff sets the sleep after an unexpected loop fault.
func WithFaultBackoff(d time.Duration) Option {
	return func(c *Config) {
		c.FaultBackoff = d
	}
}

// WithStopTimeout bounds how long StopLoop waits.
func WithStopTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.StopTimeout = d
	}
}

// WithFrameQuality sets the JPEG quality of served frames.
func WithFrameQuality(q int) Option {
	return func(c *Config) {
		c.FrameQuality = q
	}
}

// WithSnapshotDir sets where snapshot files are written.
func WithSnapshotDir(dir string) Option {
	return func(c *Config) {
		c.SnapshotDir = dir
	}
}

// WithSnapshotQuality sets the JPEG quality of snapshot files.
func WithSnapshotQuality(q int) Option {
	return func(c *Config) {
		c.SnapshotQuality = q
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMetrics records acquisition metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}
