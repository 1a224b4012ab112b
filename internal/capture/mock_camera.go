package capture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing.
type MockCamera struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	running bool
	openErr error
	closes  int
}

// NewMockCamera plays frames in order; with loop set it starts over at the end.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
	}
}

// SetOpenError makes Open fail, like an unplugged webcam.
func (c *MockCamera) SetOpenError(err error) {
	c.openErr = err
}

func (c *MockCamera) Open() error {
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.running = false
	c.closes++
	return nil
}

// Closes reports how many times Close was called.
func (c *MockCamera) Closes() int {
	return c.closes
}

// ReadFrame returns a clone of the next frame, or ErrFrameUnavailable once a
// non-looping sequence is exhausted.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("%w: no frames loaded", ErrFrameUnavailable)
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, fmt.Errorf("%w: end of recording", ErrFrameUnavailable)
		}
		c.index = 0
	}

	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {}
func (c *MockCamera) FPS() int       { return DefaultFPS }
func (c *MockCamera) IsOpen() bool   { return c.running }
