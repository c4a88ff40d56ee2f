package camera

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/camframe/pkg/video"
)

// Info describes a source without its credentials.
type Info struct {
	IPAddress      string `json:"ip_address"`
	Username       string `json:"username"`
	RTSPURL        string `json:"rtsp_url"`
	ConnectionType string `json:"connection_type"`
	StreamPath     string `json:"stream_path"`
	Connected      bool   `json:"is_connected"`
	Streaming      bool   `json:"is_streaming"`
}

// Stats are the acquisition loop counters of a source.
type Stats struct {
	FramesCaptured      uint64    `json:"frames_captured"`
	ReadFailures        uint64    `json:"read_failures"`
	Reconnects          uint64    `json:"reconnects"`
	ReconnectFailures   uint64    `json:"reconnect_failures"`
	ConsecutiveFailures int64     `json:"consecutive_failures"`
	LastFrameAt         time.Time `json:"last_frame_at"`
}

// FrameSource owns one capture session and the most recent frame read
// from it. A background loop keeps the frame current and reconnects
// forever on failure; any number of goroutines may read the frame.
type FrameSource struct {
	endpoint Endpoint
	opener   video.Opener
	cfg      Config
	log      *slog.Logger

	// capMu guards the capture field only. It is never held across a
	// backend Open or Read, so Close never waits on the network.
	capMu   sync.Mutex
	capture video.Capture

	connected atomic.Bool
	streaming atomic.Bool

	loopMu sync.Mutex
	stop   chan struct{}
	done   chan struct{}

	// Stored frames are never mutated, so frameMu only covers the swap.
	frameMu sync.Mutex
	frame   *image.RGBA
	frameAt time.Time

	framesCaptured    atomic.Uint64
	readFailures      atomic.Uint64
	reconnects        atomic.Uint64
	reconnectFailures atomic.Uint64
	failStreak        atomic.Int64
}

// NewFrameSource creates a source for ep. Nothing is opened until Open.
func NewFrameSource(ep Endpoint, opener video.Opener, opts ...Option) *FrameSource {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FrameSource{
		endpoint: ep,
		opener:   opener,
		cfg:      cfg,
		log:      logger.With("camera", ep.Host),
	}
}

// Open opens the capture session and verifies that it yields a frame.
// The test frame is discarded; only the acquisition loop fills the buffer.
func (s *FrameSource) Open() error {
	if err := s.endpoint.Validate(); err != nil {
		return err
	}

	s.log.Info("camera: connecting", "endpoint", s.endpoint)

	c, err := s.opener.Open(s.endpoint.URI(), s.cfg.Capture)
	if err == nil && !c.IsOpened() {
		s.release(c)
		err = video.ErrNotOpened
	}
	if err != nil {
		s.setConnected(false)
		s.log.Error("camera: connection failed", "error", err)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if _, err := c.Read(); err != nil {
		s.release(c)
		s.setConnected(false)
		s.log.Error("camera: no initial frame", "error", err)
		return fmt.Errorf("%w: no initial frame: %w", ErrConnectionFailed, err)
	}

	s.capMu.Lock()
	old := s.capture
	s.capture = c
	s.capMu.Unlock()
	s.release(old)

	s.setConnected(true)
	s.log.Info("camera: connected", "endpoint", s.endpoint)
	return nil
}

// StartLoop launches the acquisition loop. It returns nil without doing
// anything if the loop is already running.
func (s *FrameSource) StartLoop() error {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if s.streaming.Load() {
		return nil
	}
	if !s.connected.Load() {
		return ErrNotConnected
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return errors.New("camera: previous acquisition loop has not exited")
		}
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.streaming.Store(true)
	s.cfg.Metrics.setStreaming(true)

	go s.run(s.stop, s.done)

	s.log.Info("camera: acquisition started")
	return nil
}

// StopLoop signals the loop to exit and waits up to the configured stop
// timeout for it to do so.
func (s *FrameSource) StopLoop() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if !s.streaming.Swap(false) {
		return
	}
	s.cfg.Metrics.setStreaming(false)
	close(s.stop)

	select {
	case <-s.done:
		s.log.Info("camera: acquisition stopped")
	case <-time.After(s.cfg.StopTimeout):
		s.log.Warn("camera: acquisition loop did not exit in time", "timeout", s.cfg.StopTimeout)
	}
}

// Close stops the loop, releases the capture handle and marks the source
// disconnected. It is safe to call more than once.
func (s *FrameSource) Close() {
	s.StopLoop()

	s.capMu.Lock()
	c := s.capture
	s.capture = nil
	s.capMu.Unlock()

	if c != nil {
		s.release(c)
		s.log.Info("camera: disconnected")
	}
	s.setConnected(false)
}

// CurrentFrame returns a copy of the most recent frame.
func (s *FrameSource) CurrentFrame() (*image.RGBA, bool) {
	img := s.latest()
	if img == nil {
		return nil, false
	}
	return video.Clone(img), true
}

// FrameJPEG returns the most recent frame encoded as JPEG, or
// ErrNoFrameYet if nothing has been captured.
func (s *FrameSource) FrameJPEG() ([]byte, error) {
	img := s.latest()
	if img == nil {
		return nil, ErrNoFrameYet
	}
	return video.EncodeJPEG(img, s.cfg.FrameQuality)
}

// TakeSnapshot writes the most recent frame to the snapshot directory and
// returns the path written. An empty filename picks snapshot_<unix>.jpg.
func (s *FrameSource) TakeSnapshot(filename string) (string, error) {
	if !s.connected.Load() {
		return "", ErrNotConnected
	}
	img := s.latest()
	if img == nil {
		return "", ErrNoFrameYet
	}

	if filename == "" {
		filename = fmt.Sprintf("snapshot_%d.jpg", s.cfg.Now().Unix())
	}
	name := filepath.Base(filename)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: invalid filename %q", ErrSnapshotWrite, filename)
	}
	path := filepath.Join(s.cfg.SnapshotDir, name)

	if err := video.WriteJPEG(path, img, s.cfg.SnapshotQuality); err != nil {
		s.cfg.Metrics.snapshot(false)
		s.log.Error("camera: snapshot failed", "path", path, "error", err)
		return "", fmt.Errorf("%w: %w", ErrSnapshotWrite, err)
	}

	s.cfg.Metrics.snapshot(true)
	s.log.Info("camera: snapshot saved", "path", path)
	return path, nil
}

// Describe returns the redacted endpoint and the current state.
func (s *FrameSource) Describe() Info {
	return Info{
		IPAddress:      s.endpoint.Host,
		Username:       s.endpoint.Username,
		RTSPURL:        s.endpoint.RedactedURI(),
		ConnectionType: ConnectionType,
		StreamPath:     s.endpoint.Path,
		Connected:      s.connected.Load(),
		Streaming:      s.streaming.Load(),
	}
}

// Connected reports whether the capture session is currently usable.
func (s *FrameSource) Connected() bool {
	return s.connected.Load()
}

// Streaming reports whether the acquisition loop is running.
func (s *FrameSource) Streaming() bool {
	return s.streaming.Load()
}

// HasFrame reports whether a frame has been captured.
func (s *FrameSource) HasFrame() bool {
	return s.latest() != nil
}

// LastFrameAt returns when the current frame was stored, or the zero
// time if there is none.
func (s *FrameSource) LastFrameAt() time.Time {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.frameAt
}

// Stats returns a snapshot of the loop counters.
func (s *FrameSource) Stats() Stats {
	at := s.LastFrameAt()
	return Stats{
		FramesCaptured:      s.framesCaptured.Load(),
		ReadFailures:        s.readFailures.Load(),
		Reconnects:          s.reconnects.Load(),
		ReconnectFailures:   s.reconnectFailures.Load(),
		ConsecutiveFailures: s.failStreak.Load(),
		LastFrameAt:         at,
	}
}

func (s *FrameSource) latest() *image.RGBA {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.frame
}

func (s *FrameSource) setConnected(v bool) {
	s.connected.Store(v)
	s.cfg.Metrics.setConnected(v)
}

// run is the acquisition loop. It has no retry limit: a lost camera is
// reconnected until StopLoop is called.
func (s *FrameSource) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for s.streaming.Load() {
		delay := s.cfg.PollInterval
		if err := s.iterate(); err != nil {
			s.log.Error("camera: acquisition fault", "error", err)
			delay = s.cfg.FaultBackoff
		}

		select {
		case <-stop:
			return
		case <-time.After(delay):
		}
	}
}

// iterate performs one read (or reconnect). Panics from the capture
// backend are returned as errors so the loop survives them.
func (s *FrameSource) iterate() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("camera: recovered panic: %v", r)
		}
	}()

	img, open, rerr := s.read()
	switch {
	case !open:
		if err := s.reconnect(); err != nil {
			s.noteFailure("camera: reconnect failed", err)
		}
	case rerr != nil:
		s.readFailures.Add(1)
		s.cfg.Metrics.readFailed()
		s.noteFailure("camera: frame read failed, reconnecting", rerr)
		if err := s.reconnect(); err != nil {
			s.log.Debug("camera: reconnect failed", "error", err)
		}
	default:
		s.store(video.Resize(img, s.cfg.Width, s.cfg.Height))
	}
	return nil
}

// read reads from the current handle. The second result is false when
// there is no usable handle.
func (s *FrameSource) read() (*image.RGBA, bool, error) {
	s.capMu.Lock()
	c := s.capture
	s.capMu.Unlock()

	if c == nil || !c.IsOpened() {
		return nil, false, nil
	}
	img, err := c.Read()
	return img, true, err
}

// reconnect drops the current handle and opens a new one. A handle that
// finishes opening after StopLoop is released instead of installed.
func (s *FrameSource) reconnect() error {
	s.capMu.Lock()
	old := s.capture
	s.capture = nil
	s.capMu.Unlock()
	s.release(old)

	if !s.streaming.Load() {
		return nil
	}

	s.reconnects.Add(1)
	c, err := s.opener.Open(s.endpoint.URI(), s.cfg.Capture)
	if err == nil && !c.IsOpened() {
		s.release(c)
		err = video.ErrNotOpened
	}
	if err != nil {
		s.reconnectFailures.Add(1)
		s.cfg.Metrics.reconnected(false)
		s.setConnected(false)
		return err
	}

	s.capMu.Lock()
	if !s.streaming.Load() {
		s.capMu.Unlock()
		s.release(c)
		return nil
	}
	s.capture = c
	s.setConnected(true)
	s.capMu.Unlock()

	s.cfg.Metrics.reconnected(true)
	s.log.Info("camera: reconnected")
	return nil
}

// release closes c, logging any error. A nil c is ignored.
func (s *FrameSource) release(c video.Capture) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		s.log.Warn("camera: release capture", "error", err)
	}
}

func (s *FrameSource) store(img *image.RGBA) {
	now := s.cfg.Now()
	streak := s.failStreak.Swap(0)

	s.frameMu.Lock()
	s.frame = img
	s.frameAt = now
	s.frameMu.Unlock()

	s.framesCaptured.Add(1)
	s.cfg.Metrics.frameCaptured(now)

	if streak > 0 {
		s.log.Info("camera: stream recovered", "failures", streak)
	}
}

// noteFailure logs the first failure of a streak at warn level and the
// rest at debug.
func (s *FrameSource) noteFailure(msg string, err error) {
	n := s.failStreak.Add(1)
	args := []any{"streak", n}
	if err != nil {
		args = append(args, "error", err)
	}
	if n == 1 {
		s.log.Warn(msg, args...)
		return
	}
	s.log.Debug(msg, args...)
}
