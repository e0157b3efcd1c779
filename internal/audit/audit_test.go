package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/nerrad567/bridgesim/migrations"

	"github.com/nerrad567/bridgesim/internal/event"
	"github.com/nerrad567/bridgesim/internal/infrastructure/database"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

// ─── Repository ────────────────────────────────────────────────────

func TestSQLiteRepository_CreateAndList(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []AuditLog{
		{Action: "update", EntityType: "entertainment_configuration", EntityID: "ec-1", Owner: "app", CreatedAt: base},
		{Action: "update", EntityType: "light", EntityID: "l-1", CreatedAt: base.Add(time.Second)},
		{Action: "delete", EntityType: "light", EntityID: "l-2", CreatedAt: base.Add(2 * time.Second), Details: map[string]any{"k": "v"}},
	}
	for i := range entries {
		entries[i].Source = SourceEvents
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if entries[i].ID == "" {
			t.Error("Create() did not assign an id")
		}
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 3 || len(res.Logs) != 3 || res.Limit != DefaultLimit {
		t.Fatalf("List() = %+v", res)
	}
	if res.Logs[0].EntityID != "l-2" || res.Logs[0].Details["k"] != "v" {
		t.Errorf("newest entry = %+v", res.Logs[0])
	}
	if res.Logs[2].Owner != "app" || !res.Logs[2].CreatedAt.Equal(base) {
		t.Errorf("oldest entry = %+v", res.Logs[2])
	}

	tests := []struct {
		name   string
		filter Filter
		total  int
		count  int
	}{
		{"by action", Filter{Action: "delete"}, 1, 1},
		{"by type", Filter{EntityType: "light"}, 2, 2},
		{"by id", Filter{EntityType: "light", EntityID: "l-1"}, 1, 1},
		{"page", Filter{Limit: 1, Offset: 1}, 3, 1},
		{"past the end", Filter{Offset: 10}, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.total || len(res.Logs) != tt.count {
				t.Errorf("total=%d count=%d, want %d and %d", res.Total, len(res.Logs), tt.total, tt.count)
			}
		})
	}
}

func TestSQLiteRepository_ListClampsLimit(t *testing.T) {
	repo := testRepo(t)

	res, err := repo.List(context.Background(), Filter{Limit: 5000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != MaxLimit || res.Offset != 0 || res.Logs == nil {
		t.Errorf("List() = %+v", res)
	}
}

// ─── Recorder ──────────────────────────────────────────────────────

type failingRepo struct{ calls int }

func (f *failingRepo) Create(context.Context, *AuditLog) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingRepo) List(context.Context, Filter) (*ListResult, error) {
	return nil, errors.New("disk full")
}

func TestRecorder_ResourceGraphMessage(t *testing.T) {
	repo := testRepo(t)
	rec := NewRecorder(repo)

	msg := event.Message{ID: 7, Envelopes: []event.Envelope{{
		CreationTime: "2026-03-01T09:00:00Z",
		ID:           "env-1",
		Type:         event.TypeUpdate,
		Data: []any{
			map[string]any{
				"active_streamer": map[string]any{"rid": "app-1", "rtype": "auth_v1"},
				"id":              "ec-1",
				"type":            "entertainment_configuration",
			},
			map[string]any{"id": "l-1", "mode": "streaming", "type": "light"},
		},
	}}}
	rec.Mirror(msg)
	rec.Close()

	res, err := repo.List(context.Background(), Filter{EntityType: "entertainment_configuration"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Logs) != 1 {
		t.Fatalf("logs = %+v", res.Logs)
	}
	got := res.Logs[0]
	if got.Action != "update" || got.EntityID != "ec-1" || got.Owner != "app-1" || got.Source != SourceEvents {
		t.Errorf("log = %+v", got)
	}
	if got.Details["message_id"] != float64(7) || got.Details["event_id"] != "env-1" {
		t.Errorf("details = %v", got.Details)
	}

	res, _ = repo.List(context.Background(), Filter{EntityType: "light"})
	if len(res.Logs) != 1 || res.Logs[0].Details["mode"] != "streaming" {
		t.Errorf("light logs = %+v", res.Logs)
	}
}

func TestRecorder_LegacyMessage(t *testing.T) {
	repo := testRepo(t)
	rec := NewRecorder(repo)

	owner := "aSimulatedUser"
	rec.Mirror(event.Message{ID: 1, Envelopes: []event.Envelope{{
		CreationTime: "2026-03-01T09:00:00Z",
		ID:           "env-2",
		Type:         event.TypeUpdate,
		Data: []any{map[string]any{
			"id":       "1",
			"resource": "group",
			"type":     "Entertainment",
			"stream":   map[string]any{"active": true, "owner": owner},
		}},
	}}})
	rec.Close()

	res, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Logs) != 1 {
		t.Fatalf("logs = %+v", res.Logs)
	}
	got := res.Logs[0]
	if got.EntityType != "group" || got.Owner != owner || got.Details["active"] != true {
		t.Errorf("log = %+v", got)
	}
}

func TestRecorder_RepositoryFailure(t *testing.T) {
	repo := &failingRepo{}
	rec := NewRecorder(repo)

	rec.Mirror(event.Message{Envelopes: []event.Envelope{
		{Type: event.TypeDelete, Data: []any{map[string]any{"id": "a", "type": "light"}, map[string]any{"id": "b", "type": "light"}}},
	}})
	rec.Close()
	if repo.calls != 2 {
		t.Errorf("Create calls = %d, want 2", repo.calls)
	}
}

// blockingRepo holds every Create until release is closed.
type blockingRepo struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingRepo) Create(ctx context.Context, _ *AuditLog) error {
	<-b.release
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return nil
}

func (b *blockingRepo) List(context.Context, Filter) (*ListResult, error) {
	return &ListResult{}, nil
}

func TestRecorder_SlowRepositoryDoesNotBlock(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{})}
	rec := NewRecorder(repo, WithQueueSize(1))

	msg := event.Message{Envelopes: []event.Envelope{
		{Type: event.TypeUpdate, Data: []any{map[string]any{"id": "a", "type": "light"}}},
	}}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			rec.Mirror(msg)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Mirror() blocked on a stalled repository")
	}
	if rec.Dropped() == 0 {
		t.Error("Dropped() = 0, want messages dropped on a full queue")
	}

	close(repo.release)
	rec.Close()
	rec.Close()
	rec.Mirror(msg)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.calls == 0 || repo.calls+rec.Dropped() != 5 {
		t.Errorf("recorded %d, dropped %d, want 5 in total", repo.calls, rec.Dropped())
	}
}

func TestEntryFor_Unrecognised(t *testing.T) {
	log := entryFor(func() {})
	if log.EntityType != "unknown" || log.Details == nil {
		t.Errorf("entryFor() = %+v", log)
	}
}
