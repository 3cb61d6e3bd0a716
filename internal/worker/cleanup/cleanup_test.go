package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cynco/irportal/internal/model"
	"github.com/cynco/irportal/internal/repository"
)

type mockDeleter struct {
	deleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockDeleter) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return m.deleteExpiredFn(ctx, now)
}

type mockPurgeRecorder struct {
	total int64
	calls int
}

func (m *mockPurgeRecorder) RecordSessionsPurged(count int64) {
	m.total += count
	m.calls++
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestSessionCleanupJob_Run_DeletesAndRecords(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	var gotNow time.Time
	deleter := &mockDeleter{
		deleteExpiredFn: func(_ context.Context, n time.Time) (int64, error) {
			gotNow = n
			return 3, nil
		},
	}
	rec := &mockPurgeRecorder{}
	var buf bytes.Buffer

	job := NewSessionCleanupJob(deleter, rec, newTestLogger(&buf))
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !gotNow.Equal(now) {
		t.Errorf("DeleteExpired called with %v, want %v", gotNow, now)
	}
	if rec.total != 3 || rec.calls != 1 {
		t.Errorf("recorder total=%d calls=%d, want 3/1", rec.total, rec.calls)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log output: %v", err)
	}
	if entry["deleted_count"] != float64(3) {
		t.Errorf("deleted_count = %v, want 3", entry["deleted_count"])
	}
}

func TestSessionCleanupJob_Run_ReturnsWrappedError(t *testing.T) {
	dbErr := errors.New("connection refused")
	deleter := &mockDeleter{
		deleteExpiredFn: func(context.Context, time.Time) (int64, error) { return 0, dbErr },
	}
	rec := &mockPurgeRecorder{}
	var buf bytes.Buffer

	err := NewSessionCleanupJob(deleter, rec, newTestLogger(&buf)).Run(context.Background())
	if !errors.Is(err, dbErr) {
		t.Fatalf("Run() error = %v, want wrapped %v", err, dbErr)
	}
	if rec.calls != 0 {
		t.Error("recorder should not be called on failure")
	}
}

func TestSessionCleanupJob_Run_AgainstMemoryStore(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	store, err := repository.NewMemoryStore(nil, repository.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	ctx := context.Background()

	sessions := []*model.Session{
		{ID: "expired", PrincipalID: "p", CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ID: "live", PrincipalID: "p", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	for _, s := range sessions {
		if err := store.Sessions.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	job := NewSessionCleanupJob(store.Sessions, nil, newTestLogger(&bytes.Buffer{}))
	job.now = func() time.Time { return now }
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if s, _ := store.Sessions.FindByID(ctx, "live"); s == nil {
		t.Error("live session should remain")
	}
	if n, _ := store.Sessions.DeleteExpired(ctx, now); n != 0 {
		t.Errorf("second purge deleted %d, want 0", n)
	}
}
