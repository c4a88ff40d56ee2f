package video

import (
	"image"
	"image/color"
	"sync"
)

// Mock implements Opener for testing.
// All behavior can be customized via function fields.
type Mock struct {
	// OpenFunc is called when Open is invoked.
	// If nil, returns a MockCapture that yields solid 640x480 frames.
	OpenFunc func(uri string, opts Options) (Capture, error)

	mu    sync.Mutex
	opens []string
}

// NewMock creates a mock opener whose captures always return a solid frame.
func NewMock() *Mock {
	return &Mock{}
}

// Open calls OpenFunc and records the URI.
func (m *Mock) Open(uri string, opts Options) (Capture, error) {
	m.mu.Lock()
	m.opens = append(m.opens, uri)
	fn := m.OpenFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(uri, opts)
	}
	return NewMockCapture(SolidFrame(640, 480, color.RGBA{R: 200, G: 40, B: 40, A: 255})), nil
}

// Opens returns the number of Open calls.
func (m *Mock) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.opens)
}

// LastURI returns the URI of the most recent Open call.
func (m *Mock) LastURI() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.opens) == 0 {
		return ""
	}
	return m.opens[len(m.opens)-1]
}

// MockCapture implements Capture for testing.
type MockCapture struct {
	// ReadFunc overrides Read. If nil, Read returns a copy of Frame.
	ReadFunc func() (*image.RGBA, error)

	// Frame is returned (cloned) by the default Read.
	Frame *image.RGBA

	mu     sync.Mutex
	reads  int
	closed bool
}

// NewMockCapture returns an open capture that yields copies of frame.
func NewMockCapture(frame *image.RGBA) *MockCapture {
	return &MockCapture{Frame: frame}
}

// IsOpened reports whether Close has not been called.
func (c *MockCapture) IsOpened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Read returns the next frame.
func (c *MockCapture) Read() (*image.RGBA, error) {
	c.mu.Lock()
	c.reads++
	fn := c.ReadFunc
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return nil, ErrNotOpened
	}
	if fn != nil {
		return fn()
	}
	if c.Frame == nil {
		return nil, ErrNoFrame
	}
	return Clone(c.Frame), nil
}

// Close marks the capture closed.
func (c *MockCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Reads returns the number of Read calls.
func (c *MockCapture) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Closed reports whether Close was called.
func (c *MockCapture) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
