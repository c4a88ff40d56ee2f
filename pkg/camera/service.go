package camera

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/camframe/pkg/video"
)

// Status is the externally reported state of the service.
type Status struct {
	Connected  bool  `json:"connected"`
	Streaming  bool  `json:"streaming"`
	HasFrame   bool  `json:"has_frame"`
	CameraInfo *Info `json:"camera_info"`
}

// Service holds at most one active FrameSource. Connect and Disconnect
// are serialized; read operations never wait for them.
//
// Lifecycle: create with NewService at startup, call Close at shutdown.
type Service struct {
	opener video.Opener
	opts   []Option
	log    *slog.Logger

	mu      sync.Mutex // serializes Connect/Disconnect
	current atomic.Pointer[FrameSource]
}

// NewService creates a service that opens cameras through opener. opts
// are applied to every FrameSource it creates.
func NewService(opener video.Opener, opts ...Option) *Service {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		opener: opener,
		opts:   opts,
		log:    logger,
	}
}

// Connect replaces the current source with a new one for ep. Any existing
// source is closed first, even if ep is unchanged. On failure no source is
// installed; retrying is up to the caller.
func (s *Service) Connect(ep Endpoint) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old := s.current.Swap(nil); old != nil {
		old.Close()
	}

	src := NewFrameSource(ep, s.opener, s.opts...)
	if err := src.Open(); err != nil {
		src.Close()
		return Info{}, err
	}
	if err := src.StartLoop(); err != nil {
		src.Close()
		return Info{}, err
	}

	s.current.Store(src)
	return src.Describe(), nil
}

// Disconnect closes the current source, if any.
func (s *Service) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if src := s.current.Swap(nil); src != nil {
		src.Close()
	}
}

// Close tears the service down at process shutdown.
func (s *Service) Close() {
	s.Disconnect()
	s.log.Info("camera: service closed")
}

// Status reports the live state of the current source.
func (s *Service) Status() Status {
	src := s.current.Load()
	if src == nil {
		return Status{}
	}
	info := src.Describe()
	return Status{
		Connected:  info.Connected,
		Streaming:  info.Streaming,
		HasFrame:   src.HasFrame(),
		CameraInfo: &info,
	}
}

// Frame returns the current frame as JPEG. It fails with ErrNotConnected
// when no source is active or connected and with ErrNoFrameYet when
// connected but nothing has been captured.
func (s *Service) Frame() ([]byte, error) {
	src := s.current.Load()
	if src == nil || !src.Connected() {
		return nil, ErrNotConnected
	}
	return src.FrameJPEG()
}

// Snapshot writes the current frame to disk and returns the path.
func (s *Service) Snapshot() (string, error) {
	src := s.current.Load()
	if src == nil {
		return "", ErrNotConnected
	}
	return src.TakeSnapshot("")
}

// Info describes the current source.
func (s *Service) Info() (Info, error) {
	src := s.current.Load()
	if src == nil || !src.Connected() {
		return Info{}, ErrNotConnected
	}
	return src.Describe(), nil
}

// Stats returns the loop counters of the current source.
func (s *Service) Stats() (Stats, bool) {
	src := s.current.Load()
	if src == nil {
		return Stats{}, false
	}
	return src.Stats(), true
}
