package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/fingerled/internal/app"
	"github.com/ayusman/fingerled/internal/capture"
	"github.com/ayusman/fingerled/internal/config"
	"github.com/ayusman/fingerled/internal/detector"
	"github.com/ayusman/fingerled/internal/display"
	"github.com/ayusman/fingerled/internal/link"
	"github.com/ayusman/fingerled/internal/logging"
	"github.com/ayusman/fingerled/internal/server"
	"github.com/ayusman/fingerled/internal/store"
	"github.com/ayusman/fingerled/internal/telemetry"
)

// serialPort is an open link to the controller.
type serialPort interface {
	link.Sink
	Name() string
}

// hardware opens the devices the control loop owns.
type hardware struct {
	openPort    func(cfg link.PortConfig) (serialPort, error)
	newCamera   func(device int) capture.Camera
	newDetector func(cfg detector.Config) (detector.Detector, error)
	newViewer   func(title string) display.Viewer
}

func defaultHardware() hardware {
	return hardware{
		openPort: func(cfg link.PortConfig) (serialPort, error) {
			p, err := link.Open(cfg)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		newCamera: capture.NewCamera,
		newDetector: func(cfg detector.Config) (detector.Detector, error) {
			d, err := detector.NewMediaPipeDetector(cfg)
			if err != nil {
				return nil, err
			}
			return d, nil
		},
		newViewer: func(title string) display.Viewer {
			return display.NewWindow(title)
		},
	}
}

func main() {
	os.Exit(run(os.Args[1:], defaultHardware()))
}

// run starts the controller and returns the process exit status.
func run(args []string, hw hardware) int {
	flags := flag.NewFlagSet("fingerled", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to the YAML config file")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fingerled: %v\n", err)
		return 1
	}

	log, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fingerled: %v\n", err)
		return 1
	}

	port, err := hw.openPort(cfg.SerialPort())
	if err != nil {
		log.WithError(err).WithField("port", cfg.Serial.Port).Error("Could not connect to Arduino")
		return 1
	}
	log.WithFields(logging.Fields{"port": port.Name(), "baud": cfg.Serial.Baud}).Info("Arduino connected")

	cam := hw.newCamera(cfg.Camera.Device)
	cam.SetFPS(cfg.Camera.FPS)
	if err := cam.Open(); err != nil {
		log.WithError(err).WithField("device", cfg.Camera.Device).Error("Could not open camera")
		release(log, "close serial port", port.Close)
		return 1
	}

	det, err := hw.newDetector(cfg.HandDetector())
	if err != nil {
		log.WithError(err).Error("Could not start hand detector")
		release(log, "close camera", cam.Close)
		release(log, "close serial port", port.Close)
		return 1
	}

	st, sessionID := openJournal(log, cfg, port.Name())
	if st != nil {
		defer st.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var board *telemetry.Board
	if cfg.Status.Addr != "" {
		reg := prometheus.NewRegistry()
		board = telemetry.NewBoard(port.Name(), sessionID, reg)
		srv := server.New(server.Config{
			Board:    board,
			Store:    st,
			Gatherer: reg,
			Logger:   log,
		})
		go func() {
			if err := srv.Run(ctx, cfg.Status.Addr); err != nil {
				log.WithError(err).Warn("Status server stopped")
			}
		}()
	}

	var viewer display.Viewer = display.Headless{}
	if cfg.Display.Enabled {
		viewer = hw.newViewer(cfg.Display.Title)
	}

	a := app.New(app.Config{
		Camera:    cam,
		Detector:  det,
		Port:      port,
		Viewer:    viewer,
		Mirror:    cfg.Camera.Mirror,
		Settle:    cfg.Serial.Settle,
		Board:     board,
		Store:     st,
		SessionID: sessionID,
		Logger:    log,
	})

	log.Info("Press 'q' to quit")

	code := 0
	if err := a.Run(ctx); err != nil {
		log.WithError(err).Error("Control loop stopped")
		code = 1
	}
	if err := a.Shutdown(); err != nil {
		code = 1
	}
	return code
}

func release(log logrus.FieldLogger, what string, fn func() error) {
	if err := fn(); err != nil {
		log.WithError(err).Warnf("Failed to %s", what)
	}
}

// openJournal opens the transmission journal and starts a session. A journal
// that cannot be opened is logged and skipped.
func openJournal(log logrus.FieldLogger, cfg config.Config, portName string) (*store.Store, string) {
	if cfg.Journal.Path == "" {
		return nil, ""
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0755); err != nil {
		log.WithError(err).Warn("Journal disabled")
		return nil, ""
	}

	st, err := store.New(cfg.Journal.Path)
	if err != nil {
		log.WithError(err).Warn("Journal disabled")
		return nil, ""
	}

	sess, err := st.Sessions().Start(portName, cfg.Serial.Baud)
	if err != nil {
		log.WithError(err).Warn("Journal disabled")
		st.Close()
		return nil, ""
	}

	log.WithFields(logging.Fields{"path": st.Path(), "session": sess.ID}).Info("Journal enabled")
	return st, sess.ID
}
