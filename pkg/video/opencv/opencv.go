// Package opencv is the OpenCV capture backend. It is the only package
// that needs cgo; import it from binaries, not from libraries.
package opencv

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/camframe/pkg/video"
)

// Opener opens captures through OpenCV's VideoCapture (FFmpeg backend for RTSP).
type Opener struct{}

var _ video.Opener = Opener{}

// Open connects to uri and applies opts. It fails if OpenCV cannot open
// the stream.
func (Opener) Open(uri string, opts video.Options) (video.Capture, error) {
	// OpenCV's error text echoes the URI, credentials included.
	vc, err := gocv.OpenVideoCapture(uri)
	if err != nil {
		return nil, video.ErrNotOpened
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, video.ErrNotOpened
	}

	if opts.BufferSize > 0 {
		vc.Set(gocv.VideoCaptureBufferSize, float64(opts.BufferSize))
	}
	if opts.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, opts.FPS)
	}
	if len(opts.Codec) == 4 {
		vc.Set(gocv.VideoCaptureFOURCC, float64(vc.ToCodec(opts.Codec)))
	}

	return &gocvCapture{vc: vc, mat: gocv.NewMat()}, nil
}

type gocvCapture struct {
	mu     sync.Mutex // VideoCapture is not reentrant
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

func (c *gocvCapture) IsOpened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.vc.IsOpened()
}

func (c *gocvCapture) Read() (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, video.ErrNotOpened
	}
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, video.ErrNoFrame
	}

	// ToImage converts OpenCV's BGR layout to RGBA.
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("opencv: convert frame: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}

func (c *gocvCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.mat.Close()
	return c.vc.Close()
}
