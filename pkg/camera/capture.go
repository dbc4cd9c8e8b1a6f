package camera

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame is one captured, JPEG-encoded image.
type Frame struct {
	JPEG   []byte
	Width  int
	Height int
	Time   time.Time
}

// Capture reads frames from a local webcam.
type Capture struct {
	cfg Config
	dev *gocv.VideoCapture
	img gocv.Mat

	mu     sync.Mutex
	closed bool
}

// Open opens the configured device. It returns ErrUnavailable when the
// device is missing or busy.
func Open(cfg Config) (*Capture, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("camera: invalid config: %v", problems)
	}

	dev, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrUnavailable, cfg.Device, err)
	}
	if !dev.IsOpened() {
		dev.Close()
		return nil, fmt.Errorf("%w: device %d", ErrUnavailable, cfg.Device)
	}

	dev.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	dev.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	dev.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	return &Capture{cfg: cfg, dev: dev, img: gocv.NewMat()}, nil
}

// Config returns the capture settings.
func (c *Capture) Config() Config {
	return c.cfg
}

// Read grabs and encodes the next frame. The device may deliver a size
// other than the one requested; Frame carries the actual size.
func (c *Capture) Read() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Frame{}, ErrClosed
	}
	if ok := c.dev.Read(&c.img); !ok || c.img.Empty() {
		return Frame{}, ErrReadFailed
	}
	now := time.Now()

	if c.cfg.Mirror {
		gocv.Flip(c.img, &c.img, 1)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.img, []int{int(gocv.IMWriteJpegQuality), c.cfg.Quality})
	if err != nil {
		return Frame{}, fmt.Errorf("camera: encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	return Frame{
		JPEG:   data,
		Width:  c.img.Cols(),
		Height: c.img.Rows(),
		Time:   now,
	}, nil
}

// Close releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.img.Close()
	return c.dev.Close()
}

// DecodeJPEG checks that data is a decodable image and returns its size.
func DecodeJPEG(data []byte) (width, height int, err error) {
	if len(data) == 0 {
		return 0, 0, ErrDecode
	}
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer img.Close()

	if img.Empty() {
		return 0, 0, ErrDecode
	}
	return img.Cols(), img.Rows(), nil
}
