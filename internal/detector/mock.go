package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	calls    int
	err      error
	closed   bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// SetSequence scripts one result per Detect call. Once the sequence is
// exhausted Detect falls back to the hands set with SetHands.
func (m *MockDetector) SetSequence(seq ...[]HandLandmarks) {
	m.sequence = seq
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls reports how many times Detect has been called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	return m.closed
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls
	m.calls++
	if i < len(m.sequence) {
		return m.sequence[i], nil
	}
	return m.hands, nil
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.closed = true
	return nil
}

// Finger positions for the fixtures, as seen in a mirrored selfie view of a
// right hand with the palm facing the camera: thumb on the left.
var (
	fingerColumns = [4]float64{0.45, 0.50, 0.55, 0.60}
	extendedY     = [4]float64{0.62, 0.50, 0.42, 0.34} // MCP, PIP, DIP, TIP
	curledY       = [4]float64{0.62, 0.56, 0.62, 0.66}
)

// PoseLandmarks builds a right hand with the given fingers extended, in
// thumb, index, middle, ring, pinky order.
func PoseLandmarks(extended [5]bool) HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}
	landmarks.Points[ThumbCMC] = Point3D{X: 0.42, Y: 0.75}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.38, Y: 0.70}
	if extended[0] {
		landmarks.Points[ThumbIP] = Point3D{X: 0.33, Y: 0.66}
		landmarks.Points[ThumbTip] = Point3D{X: 0.27, Y: 0.63}
	} else {
		landmarks.Points[ThumbIP] = Point3D{X: 0.40, Y: 0.66}
		landmarks.Points[ThumbTip] = Point3D{X: 0.45, Y: 0.66, Z: -0.03}
	}

	for f := 0; f < 4; f++ {
		ys := curledY
		if extended[f+1] {
			ys = extendedY
		}
		mcp := IndexMCP + f*4
		for j := 0; j < 4; j++ {
			landmarks.Points[mcp+j] = Point3D{X: fingerColumns[f], Y: ys[j]}
		}
	}

	return landmarks
}

// FistLandmarks returns a closed fist: no finger extended.
func FistLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{})
}

// OpenPalmLandmarks returns an open palm with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{true, true, true, true, true})
}

// FingersLandmarks returns a hand showing n fingers the way people usually
// count: index first, then middle, ring, pinky and finally the thumb.
// n is clamped to 0..5.
func FingersLandmarks(n int) HandLandmarks {
	var extended [5]bool
	order := [5]int{1, 2, 3, 4, 0}
	for i := 0; i < n && i < len(order); i++ {
		extended[order[i]] = true
	}
	return PoseLandmarks(extended)
}
