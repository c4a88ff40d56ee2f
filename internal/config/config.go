// Package config loads camframe server settings from defaults, an optional
// YAML file, and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/camframe/internal/log"
	"github.com/teslashibe/camframe/pkg/camera"
	"github.com/teslashibe/camframe/pkg/video"
)

// Defaults.
const (
	DefaultServerPort = "8000"
	DefaultLogLevel   = "info"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Camera   CameraConfig   `yaml:"camera"`
	Capture  CaptureConfig  `yaml:"capture"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	LogLevel string         `yaml:"log_level"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// CameraConfig is the camera connected at startup.
type CameraConfig struct {
	IP          string `yaml:"ip"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Port        int    `yaml:"port"`
	Path        string `yaml:"path"`
	AutoConnect bool   `yaml:"auto_connect"` // only attempted when IP is set
}

// CaptureConfig tunes the capture session and the frame buffer.
type CaptureConfig struct {
	BufferSize   int           `yaml:"buffer_size"`
	FPS          float64       `yaml:"fps"`
	Codec        string        `yaml:"codec"`
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	PollInterval time.Duration `yaml:"poll_interval"`
	FaultBackoff time.Duration `yaml:"fault_backoff"`
	FrameQuality int           `yaml:"frame_quality"`
}

// SnapshotConfig controls where snapshots go.
type SnapshotConfig struct {
	Dir     string `yaml:"dir"`
	Quality int    `yaml:"quality"`
}

// Default returns the built-in configuration.
func Default() *Config {
	src := camera.DefaultConfig()
	return &Config{
		Server: ServerConfig{Port: DefaultServerPort},
		Camera: CameraConfig{
			Port:        camera.DefaultPort,
			Path:        camera.DefaultStreamPath,
			AutoConnect: true,
		},
		Capture: CaptureConfig{
			BufferSize:   src.Capture.BufferSize,
			FPS:          src.Capture.FPS,
			Codec:        src.Capture.Codec,
			Width:        src.Width,
			Height:       src.Height,
			PollInterval: src.PollInterval,
			FaultBackoff: src.FaultBackoff,
			FrameQuality: src.FrameQuality,
		},
		Snapshot: SnapshotConfig{
			Dir:     src.SnapshotDir,
			Quality: src.SnapshotQuality,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("PORT", &c.Server.Port)
	str("CAMERA_IP", &c.Camera.IP)
	str("CAMERA_USERNAME", &c.Camera.Username)
	str("CAMERA_PASSWORD", &c.Camera.Password)
	str("CAMERA_PATH", &c.Camera.Path)
	str("SNAPSHOT_DIR", &c.Snapshot.Dir)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("CAMERA_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: CAMERA_PORT: %w", err)
		}
		c.Camera.Port = port
	}
	if v, ok := lookup("CAMERA_AUTOCONNECT"); ok && v != "" {
		auto, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: CAMERA_AUTOCONNECT: %w", err)
		}
		c.Camera.AutoConnect = auto
	}
	return nil
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("server port %q must be a number between 1 and 65535", c.Server.Port))
	}
	if c.Camera.Port < 1 || c.Camera.Port > 65535 {
		errors = append(errors, "camera port must be between 1 and 65535")
	}
	if c.Capture.BufferSize < 1 {
		errors = append(errors, "capture buffer size must be at least 1")
	}
	if c.Capture.FPS <= 0 {
		errors = append(errors, "capture fps must be positive")
	}
	if len(c.Capture.Codec) != 4 {
		errors = append(errors, "capture codec must be a four character code")
	}
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errors = append(errors, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}

	src := camera.DefaultConfig()
	for _, opt := range c.SourceOptions() {
		opt(&src)
	}
	errors = append(errors, src.Validate()...)

	return errors
}

// AutoConnect reports whether a camera should be connected at startup.
func (c *Config) AutoConnect() bool {
	return c.Camera.AutoConnect && c.Camera.IP != ""
}

// Endpoint returns the startup camera endpoint.
func (c *Config) Endpoint() camera.Endpoint {
	return camera.NewEndpoint(c.Camera.IP, c.Camera.Username, c.Camera.Password, c.Camera.Port, c.Camera.Path)
}

// SourceOptions converts the capture and snapshot settings into options
// for camera.NewService.
func (c *Config) SourceOptions() []camera.Option {
	return []camera.Option{
		camera.WithCaptureOptions(video.Options{
			BufferSize: c.Capture.BufferSize,
			FPS:        c.Capture.FPS,
			Codec:      c.Capture.Codec,
		}),
		camera.WithFrameSize(c.Capture.Width, c.Capture.Height),
		camera.WithPollInterval(c.Capture.PollInterval),
		camera.WithFaultBackoff(c.Capture.FaultBackoff),
		camera.WithFrameQuality(c.Capture.FrameQuality),
		camera.WithSnapshotDir(c.Snapshot.Dir),
		camera.WithSnapshotQuality(c.Snapshot.Quality),
	}
}
