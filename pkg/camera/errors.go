package camera

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrConnectionFailed is returned when the capture session could not be
	// opened or produced no initial frame.
	ErrConnectionFailed = errors.New("camera: connection failed")

	// ErrNotConnected is returned for frame, snapshot and info requests
	// while no source is active or the source is not connected.
	ErrNotConnected = errors.New("camera: not connected")

	// ErrNoFrameYet is returned when connected but no frame has been
	// captured yet.
	ErrNoFrameYet = errors.New("camera: no frame available")

	// ErrSnapshotWrite is returned when a snapshot could not be written.
	ErrSnapshotWrite = errors.New("camera: snapshot write failed")

	// ErrInvalidEndpoint is returned for endpoints that cannot be connected to.
	ErrInvalidEndpoint = errors.New("camera: invalid endpoint")
)
