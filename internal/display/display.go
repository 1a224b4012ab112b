// Package display draws the finger count overlay and shows frames in a window.
package display

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingerled/internal/detector"
)

// DefaultTitle is the window title.
const DefaultTitle = "Hand Gesture LED Control"

// QuitKey ends the session when pressed in the window.
const QuitKey = 'q'

var (
	textColor     = color.RGBA{G: 255}
	landmarkColor = color.RGBA{R: 255, A: 255}
	boneColor     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	textOrigin    = image.Pt(10, 30)
)

// Viewer shows annotated frames and reports when the user asks to quit.
type Viewer interface {
	// Show displays the frame and returns true if the session should end.
	Show(frame *gocv.Mat) bool
	Close() error
}

// Annotate draws every detected hand and the current count onto frame.
func Annotate(frame *gocv.Mat, hands []detector.HandLandmarks, count int) {
	if frame == nil || frame.Empty() {
		return
	}

	w, h := frame.Cols(), frame.Rows()
	for i := range hands {
		drawHand(frame, &hands[i], w, h)
	}

	gocv.PutTextWithParams(frame, Label(count), textOrigin,
		gocv.FontHersheySimplex, 1, textColor, 2, gocv.LineAA, false)
}

// Label is the overlay text for a count.
func Label(count int) string {
	return fmt.Sprintf("Fingers: %d", count)
}

func drawHand(frame *gocv.Mat, hand *detector.HandLandmarks, w, h int) {
	for _, c := range detector.HandConnections {
		gocv.Line(frame, hand.Pixel(c[0], w, h), hand.Pixel(c[1], w, h), boneColor, 2)
	}
	for i := 0; i < detector.NumLandmarks; i++ {
		gocv.Circle(frame, hand.Pixel(i, w, h), 4, landmarkColor, -1)
	}
}

// Window is a native OpenCV window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	if title == "" {
		title = DefaultTitle
	}
	return &Window{window: gocv.NewWindow(title)}
}

// Show displays the frame and polls the keyboard for 1ms.
func (w *Window) Show(frame *gocv.Mat) bool {
	w.window.IMShow(*frame)
	return IsQuitKey(w.window.WaitKey(1))
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// IsQuitKey reports whether a WaitKey result is the quit key.
func IsQuitKey(key int) bool {
	return key >= 0 && key&0xFF == QuitKey
}

// Headless discards frames. The session then ends when the camera stops or
// the process is signalled.
type Headless struct{}

func (Headless) Show(*gocv.Mat) bool { return false }
func (Headless) Close() error        { return nil }
