package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	_ "github.com/nerrad567/bridgesim/migrations"

	"github.com/nerrad567/bridgesim/internal/audit"
	"github.com/nerrad567/bridgesim/internal/infrastructure/config"
	"github.com/nerrad567/bridgesim/internal/infrastructure/database"
)

// withAudit attaches an in-memory audit history to env. Close the returned
// recorder to wait for pending entries.
func withAudit(t *testing.T, env *testEnv) *audit.Recorder {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	repo := audit.NewSQLiteRepository(db.DB)
	rec := audit.NewRecorder(repo)
	t.Cleanup(rec.Close)
	env.events.AddMirror(rec)
	env.srv.audit = repo
	env.handler = env.srv.buildRouter()
	return rec
}

func TestAudit_RecordsStreamSessions(t *testing.T) {
	env := testServer(t, config.GenerationClipV2)
	rec := withAudit(t, env)

	env.do(t, http.MethodPut, ecPath, `{"action":"start"}`)
	env.do(t, http.MethodPut, ecPath, `{"action":"stop"}`)
	rec.Close()

	w := env.do(t, http.MethodGet, "/develop/audit?entity_type=entertainment_configuration&entity_id="+defaultEC, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, trimmed(w))
	}
	var res audit.ListResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// Start writes the streamer and the status, stop only the status.
	if res.Total != 3 {
		t.Fatalf("total = %d, want 3: %+v", res.Total, res.Logs)
	}

	var owners int
	for _, l := range res.Logs {
		if l.Owner == "abcdef01-0123-0123-0123-abcdef012345" {
			owners++
		}
	}
	if owners != 1 {
		t.Errorf("entries with the streaming owner = %d, want 1", owners)
	}
}

func TestAudit_QueryValidation(t *testing.T) {
	env := testServer(t, config.GenerationClipV2)
	withAudit(t, env)

	for _, q := range []string{"limit=x", "limit=-1", "offset=abc"} {
		if w := env.do(t, http.MethodGet, "/develop/audit?"+q, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
	if w := env.do(t, http.MethodGet, "/develop/audit?limit=5", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAudit_RouteAbsentWithoutHistory(t *testing.T) {
	env := testServer(t, config.GenerationClipV2)

	if w := env.do(t, http.MethodGet, "/develop/audit", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
