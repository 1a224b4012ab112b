// Package fingers counts extended fingers from hand landmarks.
package fingers

import "github.com/ayusman/fingerled/internal/detector"

// TipIDs are the fingertip landmark indices: thumb, index, middle, ring, pinky.
var TipIDs = [5]int{
	detector.ThumbTip,
	detector.IndexTip,
	detector.MiddleTip,
	detector.RingTip,
	detector.PinkyTip,
}

// Names labels the fingers in TipIDs order.
var Names = [5]string{"thumb", "index", "middle", "ring", "pinky"}

// Extended reports which fingers of the hand are up, in TipIDs order.
//
// The thumb is up when its tip lies left of the joint below it (tip-1). This
// is a fixed horizontal test that assumes a mirrored right hand, palm towards
// the camera. Every other finger is up when its tip is higher in the frame
// (smaller y) than the joint two segments below it (tip-2).
func Extended(h *detector.HandLandmarks) [5]bool {
	var up [5]bool
	if h == nil {
		return up
	}

	thumb := TipIDs[0]
	up[0] = h.Points[thumb].X < h.Points[thumb-1].X

	for i := 1; i < len(TipIDs); i++ {
		tip := TipIDs[i]
		up[i] = h.Points[tip].Y < h.Points[tip-2].Y
	}
	return up
}

// CountHand returns the number of extended fingers on one hand, 0..5.
func CountHand(h *detector.HandLandmarks) int {
	n := 0
	for _, up := range Extended(h) {
		if up {
			n++
		}
	}
	return n
}

// Count classifies the first detected hand. Other hands are ignored and an
// empty detection counts as zero.
func Count(hands []detector.HandLandmarks) int {
	if len(hands) == 0 {
		return 0
	}
	return CountHand(&hands[0])
}
