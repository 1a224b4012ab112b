package link

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// MaxCount is the largest count the controller understands.
const MaxCount = 5

// DefaultSettle is the minimum spacing between two transmissions.
const DefaultSettle = 100 * time.Millisecond

// ErrCountOutOfRange is returned for counts the controller cannot display.
var ErrCountOutOfRange = errors.New("count out of range")

// Reason says why a byte was transmitted.
type Reason string

const (
	// ReasonChange is a transmission triggered by a new finger count.
	ReasonChange Reason = "change"
	// ReasonShutdown is the final "all LEDs off" transmission.
	ReasonShutdown Reason = "shutdown"
)

// Transmission describes one byte written to the sink.
type Transmission struct {
	Count  int
	Reason Reason
	At     time.Time
}

// Encode renders a count as the single ASCII digit the controller reads.
func Encode(count int) ([]byte, error) {
	if count < 0 || count > MaxCount {
		return nil, fmt.Errorf("%w: %d", ErrCountOutOfRange, count)
	}
	return []byte(strconv.Itoa(count)), nil
}

// Gate forwards counts to a Sink only when they differ from the last one sent.
// It is not safe for concurrent use; the control loop owns it.
type Gate struct {
	sink    Sink
	last    int
	limiter *rate.Limiter
	onSend  []func(Transmission)
	now     func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithSettle spaces transmissions at least d apart. Zero disables pacing.
func WithSettle(d time.Duration) GateOption {
	return func(g *Gate) {
		if d <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithOnSend registers a hook called after every successful write.
func WithOnSend(fn func(Transmission)) GateOption {
	return func(g *Gate) {
		if fn != nil {
			g.onSend = append(g.onSend, fn)
		}
	}
}

// NewGate creates a gate with nothing sent yet, so the first observed count
// is always transmitted.
func NewGate(sink Sink, opts ...GateOption) *Gate {
	g := &Gate{
		sink: sink,
		last: -1,
		now:  time.Now,
	}
	WithSettle(DefaultSettle)(g)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Last returns the last transmitted count, or -1 if nothing was sent yet.
func (g *Gate) Last() int {
	return g.last
}

// Observe transmits count if it differs from the last transmitted value.
// It reports whether a byte was written.
func (g *Gate) Observe(ctx context.Context, count int) (bool, error) {
	if count == g.last {
		return false, nil
	}

	payload, err := Encode(count)
	if err != nil {
		return false, err
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	if err := g.write(payload, count, ReasonChange); err != nil {
		return false, err
	}
	return true, nil
}

// Off writes '0' unconditionally, whatever was sent before.
func (g *Gate) Off() error {
	if g.limiter != nil {
		r := g.limiter.Reserve()
		time.Sleep(r.Delay())
	}
	return g.write([]byte("0"), 0, ReasonShutdown)
}

func (g *Gate) write(payload []byte, count int, reason Reason) error {
	if _, err := g.sink.Write(payload); err != nil {
		return fmt.Errorf("write %q: %w", payload, err)
	}
	g.last = count

	tx := Transmission{Count: count, Reason: reason, At: g.now()}
	for _, fn := range g.onSend {
		fn(tx)
	}
	return nil
}
