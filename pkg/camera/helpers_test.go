package camera_test

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/teslashibe/camframe/pkg/camera"
	"github.com/teslashibe/camframe/pkg/video"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastOptions shortens every loop timing so tests run in milliseconds.
func fastOptions(extra ...camera.Option) []camera.Option {
	opts := []camera.Option{
		camera.WithPollInterval(time.Millisecond),
		camera.WithFaultBackoff(5 * time.Millisecond),
		camera.WithStopTimeout(time.Second),
		camera.WithLogger(quietLogger()),
	}
	return append(opts, extra...)
}

func testEndpoint() camera.Endpoint {
	return camera.NewEndpoint("10.0.0.5", "a", "b", 0, "")
}

// waitFor polls cond until it is true or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func pixel(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

// uniform reports whether every pixel of img equals its first pixel.
func uniform(img *image.RGBA) bool {
	first := img.Pix[:4]
	for i := 4; i < len(img.Pix); i += 4 {
		if img.Pix[i] != first[0] || img.Pix[i+1] != first[1] || img.Pix[i+2] != first[2] || img.Pix[i+3] != first[3] {
			return false
		}
	}
	return true
}

func solidOpener(c color.RGBA) *video.Mock {
	m := video.NewMock()
	m.OpenFunc = func(uri string, opts video.Options) (video.Capture, error) {
		return video.NewMockCapture(video.SolidFrame(640, 480, c)), nil
	}
	return m
}
