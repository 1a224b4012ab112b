// Package app runs the fingerled control loop: capture, detect, count,
// transmit and display, one frame at a time.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/fingerled/internal/capture"
	"github.com/ayusman/fingerled/internal/detector"
	"github.com/ayusman/fingerled/internal/display"
	"github.com/ayusman/fingerled/internal/fingers"
	"github.com/ayusman/fingerled/internal/link"
	"github.com/ayusman/fingerled/internal/logging"
	"github.com/ayusman/fingerled/internal/store"
	"github.com/ayusman/fingerled/internal/telemetry"
)

// Config holds the resources owned by the control loop. Camera, Detector and
// Port are required; the rest are optional.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Port     link.Sink
	Viewer   display.Viewer

	// Mirror flips every frame horizontally before detection.
	Mirror bool
	// Settle is the minimum spacing between two transmissions. Zero disables it.
	Settle time.Duration

	Board     *telemetry.Board
	Store     *store.Store
	SessionID string
	Logger    logrus.FieldLogger
}

// App is the single-threaded control loop. It owns the camera, the detector,
// the serial port and the viewer, and releases all of them in Shutdown.
type App struct {
	config Config
	gate   *link.Gate
	viewer display.Viewer
	log    logrus.FieldLogger

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an App from the given configuration.
func New(config Config) *App {
	log := config.Logger
	if log == nil {
		log = logging.Discard()
	}

	a := &App{
		config: config,
		viewer: config.Viewer,
		log:    log,
	}
	if a.viewer == nil {
		a.viewer = display.Headless{}
	}

	a.gate = link.NewGate(config.Port,
		link.WithSettle(config.Settle),
		link.WithOnSend(a.recordSend),
	)
	return a
}

// Gate returns the transmission gate.
func (a *App) Gate() *link.Gate {
	return a.gate
}

// Run processes frames until the camera runs out, the viewer asks to quit or
// ctx is cancelled. Detector and serial failures end the loop with an error.
func (a *App) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			a.log.Info("Interrupted, stopping")
			return nil
		}

		quit, err := a.step(ctx)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// step handles one frame. It reports true when the loop should stop cleanly.
func (a *App) step(ctx context.Context) (bool, error) {
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrFrameUnavailable) {
			a.log.WithError(err).Warn("Camera stream ended")
			return true, nil
		}
		return false, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	if a.config.Mirror {
		capture.Mirror(frame)
	}

	start := time.Now()
	hands, err := a.config.Detector.Detect(frame)
	if err != nil {
		return false, fmt.Errorf("detect hands: %w", err)
	}
	elapsed := time.Since(start)

	count := fingers.Count(hands)
	display.Annotate(frame, hands, count)

	if _, err := a.gate.Observe(ctx, count); err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		return false, fmt.Errorf("transmit count: %w", err)
	}

	if a.config.Board != nil {
		a.config.Board.Frame(count, len(hands), elapsed, a.encode(frame))
	}

	if a.viewer.Show(frame) {
		a.log.Info("Quit key pressed")
		return true, nil
	}
	return false, nil
}

func (a *App) encode(frame *gocv.Mat) []byte {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		a.log.WithError(err).Debug("encode preview frame")
		return nil
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...)
}

func (a *App) recordSend(tx link.Transmission) {
	entry := a.log.WithFields(logging.Fields{"count": tx.Count, "reason": tx.Reason})
	if tx.Reason == link.ReasonChange {
		entry.Infof("Detected: %d fingers up. Sending...", tx.Count)
	} else {
		entry.Info("Sent LED off")
	}

	if a.config.Board != nil {
		a.config.Board.Sent(tx.Count, string(tx.Reason))
	}

	if a.config.Store != nil && a.config.SessionID != "" {
		err := a.config.Store.Transmissions().Record(&store.Transmission{
			SessionID: a.config.SessionID,
			Count:     tx.Count,
			Reason:    string(tx.Reason),
			SentAt:    tx.At,
		})
		if err != nil {
			a.log.WithError(err).Warn("journal transmission")
		}
	}
}

// Shutdown turns every LED off and releases the camera, detector, viewer
// and serial port. It is safe to call more than once; only the first call
// does any work.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		var errs []error
		release := func(what string, fn func() error) {
			if err := fn(); err != nil {
				a.log.WithError(err).Errorf("Failed to %s", what)
				errs = append(errs, fmt.Errorf("%s: %w", what, err))
			}
		}

		a.log.Info("Turning off all LEDs")
		release("turn off LEDs", a.gate.Off)

		release("close camera", a.config.Camera.Close)
		release("close detector", a.config.Detector.Close)
		release("close window", a.viewer.Close)
		release("close serial port", a.config.Port.Close)

		if a.config.Store != nil && a.config.SessionID != "" {
			release("end session", func() error {
				return a.config.Store.Sessions().End(a.config.SessionID)
			})
		}

		a.log.Info("Resources released")
		a.shutdownErr = errors.Join(errs...)
	})
	return a.shutdownErr
}
