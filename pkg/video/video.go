// Package video is the boundary to the media-capture backend.
// A backend opens a stream URI and yields decoded frames as Go images.
// The OpenCV backend lives in video/opencv so this package stays cgo-free.
package video

import (
	"errors"
	"image"
)

// ErrNoFrame is returned by Capture.Read when the handle is open but the
// backend produced no frame.
var ErrNoFrame = errors.New("video: no frame")

// ErrNotOpened is returned by an Opener when the session could not be opened.
var ErrNotOpened = errors.New("video: capture not opened")

// Options tunes a capture session.
type Options struct {
	BufferSize int     // internal frame queue depth (1 = always the newest frame)
	FPS        float64 // requested acquisition rate
	Codec      string  // FourCC hint, e.g. "H264"
}

// DefaultOptions returns the settings used for RTSP cameras.
func DefaultOptions() Options {
	return Options{
		BufferSize: 1,
		FPS:        15,
		Codec:      "H264",
	}
}

// Capture is an open capture session. It is owned by a single goroutine;
// implementations only need to make Close safe against a concurrent Read.
type Capture interface {
	IsOpened() bool
	// Read returns a newly allocated frame owned by the caller.
	Read() (*image.RGBA, error)
	Close() error
}

// Opener opens capture sessions.
type Opener interface {
	Open(uri string, opts Options) (Capture, error)
}
