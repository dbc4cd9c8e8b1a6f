package camera

import "errors"

var (
	// ErrUnavailable is returned when the capture device cannot be opened.
	ErrUnavailable = errors.New("camera: device unavailable")

	// ErrReadFailed is returned when a frame cannot be grabbed.
	ErrReadFailed = errors.New("camera: frame read failed")

	// ErrDecode is returned when bytes are not a decodable image.
	ErrDecode = errors.New("camera: image decode failed")

	// ErrClosed is returned when reading from a closed capture.
	ErrClosed = errors.New("camera: closed")
)
