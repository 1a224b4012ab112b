package store

import (
	"errors"
	"testing"
	"time"
)

func TestSessionRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	t.Run("start assigns id", func(t *testing.T) {
		sess, err := repo.Start("COM3", 9600)
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if sess.ID == "" {
			t.Error("expected session ID")
		}
		if sess.EndedAt != nil {
			t.Error("new session should not be ended")
		}

		got, err := repo.GetByID(sess.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Port != "COM3" || got.Baud != 9600 {
			t.Errorf("GetByID() = %+v", got)
		}
	})

	t.Run("end stamps time", func(t *testing.T) {
		sess, _ := repo.Start("/dev/ttyUSB0", 9600)

		if err := repo.End(sess.ID); err != nil {
			t.Fatalf("End() error = %v", err)
		}

		got, err := repo.GetByID(sess.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.EndedAt == nil {
			t.Error("expected EndedAt after End()")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByID() error = %v, want ErrNotFound", err)
		}
		if err := repo.End("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("End() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		sessions, err := repo.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sessions) != 2 {
			t.Errorf("List() returned %d sessions, want 2", len(sessions))
		}
	})
}

func TestTransmissionRepository(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Sessions().Start("COM3", 9600)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	repo := s.Transmissions()

	sent := []struct {
		count  int
		reason string
	}{
		{0, "change"},
		{3, "change"},
		{5, "change"},
		{0, "shutdown"},
	}
	for _, tx := range sent {
		rec := &Transmission{SessionID: sess.ID, Count: tx.count, Reason: tx.reason}
		if err := repo.Record(rec); err != nil {
			t.Fatalf("Record(%d) error = %v", tx.count, err)
		}
		if rec.ID == 0 {
			t.Error("Record() should assign an ID")
		}
		if rec.SentAt.IsZero() {
			t.Error("Record() should stamp SentAt")
		}
	}

	t.Run("list by session keeps order", func(t *testing.T) {
		got, err := repo.ListBySession(sess.ID)
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(got) != len(sent) {
			t.Fatalf("got %d transmissions, want %d", len(got), len(sent))
		}
		for i := range sent {
			if got[i].Count != sent[i].count || got[i].Reason != sent[i].reason {
				t.Errorf("transmission %d = %d/%s, want %d/%s", i, got[i].Count, got[i].Reason, sent[i].count, sent[i].reason)
			}
		}
	})

	t.Run("recent newest first", func(t *testing.T) {
		got, err := repo.Recent(2)
		if err != nil {
			t.Fatalf("Recent() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Recent(2) returned %d", len(got))
		}
		if got[0].Reason != "shutdown" {
			t.Errorf("newest transmission reason = %s, want shutdown", got[0].Reason)
		}
	})

	t.Run("rejects out of range count", func(t *testing.T) {
		err := repo.Record(&Transmission{SessionID: sess.ID, Count: 9, Reason: "change", SentAt: time.Now()})
		if err == nil {
			t.Error("expected constraint error for count 9")
		}
	})

	t.Run("rejects unknown session", func(t *testing.T) {
		err := repo.Record(&Transmission{SessionID: "nope", Count: 1, Reason: "change"})
		if err == nil {
			t.Error("expected foreign key error")
		}
	})
}
