// Package link carries finger counts to the LED microcontroller over a serial line.
package link

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/tarm/serial"
)

// Default serial settings for the LED controller sketch.
const (
	DefaultBaud        = 9600
	DefaultReadTimeout = time.Second
	DefaultResetDelay  = 2 * time.Second
)

// Sink is where encoded counts are written. *Port satisfies it; tests use a buffer.
type Sink interface {
	io.WriteCloser
}

// PortConfig describes the serial device to open.
type PortConfig struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
	// ResetDelay is how long to wait after opening before the board is
	// ready. Opening the port toggles DTR, which resets most Arduino boards.
	ResetDelay time.Duration
}

// DefaultPortName returns the usual first USB serial device for the platform.
func DefaultPortName() string {
	switch runtime.GOOS {
	case "windows":
		return "COM3"
	case "darwin":
		return "/dev/tty.usbmodem1101"
	default:
		return "/dev/ttyUSB0"
	}
}

// DefaultPortConfig returns the settings the controller sketch expects.
func DefaultPortConfig() PortConfig {
	return PortConfig{
		Name:        DefaultPortName(),
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
		ResetDelay:  DefaultResetDelay,
	}
}

// Port is an open serial connection to the controller.
type Port struct {
	name string
	port *serial.Port
}

// Open opens the serial device and waits out the board reset.
func Open(cfg PortConfig) (*Port, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Name, err)
	}

	if cfg.ResetDelay > 0 {
		time.Sleep(cfg.ResetDelay)
	}

	return &Port{name: cfg.Name, port: p}, nil
}

// Name returns the device path the port was opened with.
func (p *Port) Name() string {
	return p.name
}

// Write sends raw bytes to the controller.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close flushes and closes the serial device.
func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}
