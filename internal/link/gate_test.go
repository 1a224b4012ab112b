package link

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

// recordingSink collects every write separately.
type recordingSink struct {
	writes []string
	err    error
	closed bool
}

func (s *recordingSink) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.writes = append(s.writes, string(p))
	return len(p), nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestEncode(t *testing.T) {
	for count := 0; count <= MaxCount; count++ {
		got, err := Encode(count)
		if err != nil {
			t.Fatalf("Encode(%d) error = %v", count, err)
		}
		if len(got) != 1 || got[0] != byte('0'+count) {
			t.Errorf("Encode(%d) = %q, want single digit", count, got)
		}
	}

	for _, bad := range []int{-1, 6, 10} {
		if _, err := Encode(bad); !errors.Is(err, ErrCountOutOfRange) {
			t.Errorf("Encode(%d) error = %v, want ErrCountOutOfRange", bad, err)
		}
	}
}

func TestGate_TransmitsOnlyOnChange(t *testing.T) {
	tests := []struct {
		name   string
		frames []int
		want   []string
	}{
		{"first frame always sent", []int{0}, []string{"0"}},
		{"steady count sent once", []int{2, 2, 2, 2}, []string{"2"}},
		{"each change sent", []int{0, 0, 3, 3, 3, 5, 0}, []string{"0", "3", "5", "0"}},
		{"alternating", []int{1, 2, 1, 2}, []string{"1", "2", "1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			g := NewGate(sink, WithSettle(0))

			for _, c := range tt.frames {
				if _, err := g.Observe(context.Background(), c); err != nil {
					t.Fatalf("Observe(%d) error = %v", c, err)
				}
			}

			if len(sink.writes) != len(tt.want) {
				t.Fatalf("writes = %v, want %v", sink.writes, tt.want)
			}
			for i := range tt.want {
				if sink.writes[i] != tt.want[i] {
					t.Errorf("write %d = %q, want %q", i, sink.writes[i], tt.want[i])
				}
			}
			if g.Last() != tt.frames[len(tt.frames)-1] {
				t.Errorf("Last() = %d, want %d", g.Last(), tt.frames[len(tt.frames)-1])
			}
		})
	}
}

func TestGate_ObserveReportsSent(t *testing.T) {
	g := NewGate(&recordingSink{}, WithSettle(0))

	if g.Last() != -1 {
		t.Errorf("Last() before any send = %d, want -1", g.Last())
	}

	sent, _ := g.Observe(context.Background(), 4)
	if !sent {
		t.Error("first observe should send")
	}
	sent, _ = g.Observe(context.Background(), 4)
	if sent {
		t.Error("repeated count should not send")
	}
}

func TestGate_Off(t *testing.T) {
	tests := []struct {
		name  string
		prior []int
	}{
		{"nothing sent", nil},
		{"last was five", []int{5}},
		{"last was zero", []int{3, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			g := NewGate(sink, WithSettle(0))
			for _, c := range tt.prior {
				g.Observe(context.Background(), c)
			}
			before := len(sink.writes)

			if err := g.Off(); err != nil {
				t.Fatalf("Off() error = %v", err)
			}

			if len(sink.writes) != before+1 {
				t.Fatalf("Off() should write exactly once, writes = %v", sink.writes)
			}
			if sink.writes[len(sink.writes)-1] != "0" {
				t.Errorf("Off() wrote %q, want \"0\"", sink.writes[len(sink.writes)-1])
			}
			if g.Last() != 0 {
				t.Errorf("Last() after Off = %d, want 0", g.Last())
			}
		})
	}
}

func TestGate_OutOfRangeNotSent(t *testing.T) {
	sink := &recordingSink{}
	g := NewGate(sink, WithSettle(0))

	sent, err := g.Observe(context.Background(), 7)
	if !errors.Is(err, ErrCountOutOfRange) {
		t.Errorf("error = %v, want ErrCountOutOfRange", err)
	}
	if sent || len(sink.writes) != 0 {
		t.Error("out of range count must not be written")
	}
	if g.Last() != -1 {
		t.Errorf("Last() = %d, want -1", g.Last())
	}
}

func TestGate_WriteErrorKeepsLast(t *testing.T) {
	sink := &recordingSink{}
	g := NewGate(sink, WithSettle(0))
	g.Observe(context.Background(), 2)

	sink.err = errors.New("device unplugged")
	if _, err := g.Observe(context.Background(), 3); err == nil {
		t.Fatal("expected write error")
	}
	if g.Last() != 2 {
		t.Errorf("Last() = %d, want 2 after failed write", g.Last())
	}
}

func TestGate_OnSend(t *testing.T) {
	var got []Transmission
	g := NewGate(&recordingSink{}, WithSettle(0), WithOnSend(func(tx Transmission) {
		got = append(got, tx)
	}))

	g.Observe(context.Background(), 1)
	g.Observe(context.Background(), 1)
	g.Observe(context.Background(), 4)
	g.Off()

	want := []Transmission{
		{Count: 1, Reason: ReasonChange},
		{Count: 4, Reason: ReasonChange},
		{Count: 0, Reason: ReasonShutdown},
	}
	if len(got) != len(want) {
		t.Fatalf("hook calls = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Count != want[i].Count || got[i].Reason != want[i].Reason {
			t.Errorf("call %d = %+v, want %+v", i, got[i], want[i])
		}
		if got[i].At.IsZero() {
			t.Errorf("call %d has zero timestamp", i)
		}
	}
}

func TestGate_Settle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing test in short mode")
	}

	settle := 50 * time.Millisecond
	g := NewGate(&recordingSink{}, WithSettle(settle))

	start := time.Now()
	g.Observe(context.Background(), 1)
	g.Observe(context.Background(), 2)
	g.Observe(context.Background(), 3)
	elapsed := time.Since(start)

	if elapsed < 2*settle-10*time.Millisecond {
		t.Errorf("three changes took %v, want at least ~%v", elapsed, 2*settle)
	}
}

func TestGate_SettleHonoursContext(t *testing.T) {
	g := NewGate(&recordingSink{}, WithSettle(time.Hour))
	g.Observe(context.Background(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent, err := g.Observe(ctx, 2)
	if err == nil || sent {
		t.Errorf("Observe with cancelled context = (%v, %v), want error", sent, err)
	}
	if g.Last() != 1 {
		t.Errorf("Last() = %d, want 1", g.Last())
	}
}

func TestGate_BufferSink(t *testing.T) {
	var buf bytes.Buffer
	g := NewGate(nopCloser{&buf}, WithSettle(0))

	for _, c := range []int{0, 1, 1, 2, 3, 3} {
		g.Observe(context.Background(), c)
	}
	g.Off()

	if buf.String() != "01230" {
		t.Errorf("wire bytes = %q, want %q", buf.String(), "01230")
	}
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestDefaultPortConfig(t *testing.T) {
	cfg := DefaultPortConfig()

	if cfg.Baud != 9600 {
		t.Errorf("Baud = %d, want 9600", cfg.Baud)
	}
	if cfg.ResetDelay != 2*time.Second {
		t.Errorf("ResetDelay = %v, want 2s", cfg.ResetDelay)
	}
	if cfg.Name == "" {
		t.Error("Name should not be empty")
	}
}

func TestOpen_MissingDevice(t *testing.T) {
	cfg := DefaultPortConfig()
	cfg.Name = "/dev/fingerled-does-not-exist"
	cfg.ResetDelay = 0

	if _, err := Open(cfg); err == nil {
		t.Error("expected error opening missing device")
	}
}

func TestDefaultPortName(t *testing.T) {
	want := map[string]string{
		"windows": "COM3",
		"darwin":  "/dev/tty.usbmodem1101",
	}[runtime.GOOS]
	if want == "" {
		want = "/dev/ttyUSB0"
	}

	if got := DefaultPortName(); got != want {
		t.Errorf("DefaultPortName() = %s, want %s on %s", got, want, runtime.GOOS)
	}
}
