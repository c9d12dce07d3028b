package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domain "privflow/internal/domain/privileging"
	"privflow/internal/infrastructure/metrics"
	"privflow/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "privflow/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "privflow/internal/infrastructure/persistence/sqlite/uow"
	"privflow/internal/ports"
	"privflow/internal/usecase/privileging"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "api.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	dir := sqliterepo.NewDirectoryRepository(db)
	ctx := context.Background()
	for _, p := range []ports.Practitioner{
		{ID: "p-dent", Name: "Dana", Role: domain.RolePractitioner, Type: domain.TypeDentist, Department: "dental", PrimarySpecialty: "Orthodontics", Active: true},
		{ID: "h-dental", Name: "Hana", Role: domain.RoleDepartmentHead, Type: domain.TypeDentist, Department: "dental", Active: true},
		{ID: "md-1", Name: "Mo", Role: domain.RoleMedicalDirector, Type: domain.TypePhysician, Department: "executive", Active: true},
	} {
		if err := dir.UpsertPractitioner(ctx, p); err != nil {
			t.Fatalf("UpsertPractitioner() error = %v", err)
		}
	}
	if err := dir.UpsertPrivilege(ctx, ports.Privilege{ID: "ortho-brackets", Name: "Brackets", RequiredSpecialty: "Orthodontics"}); err != nil {
		t.Fatalf("UpsertPrivilege() error = %v", err)
	}

	recorder := metrics.NewRecorder()
	svc := privileging.NewService(
		sqliterepo.NewLedgerRepository(db),
		dir,
		sqliteuow.NewUnitOfWork(db),
		nil,
		recorder,
		nil,
		privileging.Options{Policy: domain.EscalationPolicy{WarningDays: 7, EscalationDays: 14, MaxLevel: 3}},
	)
	return NewServer(svc, recorder.Handler()).Routes()
}

func doJSON(t *testing.T, h http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	h := setupServer(t)

	rec := doJSON(t, h, http.MethodPost, "/requests", map[string]any{
		"requester_id":  "p-dent",
		"kind":          "new",
		"privilege_ids": []string{"ortho-brackets"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /requests status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("missing %s header", requestIDHeader)
	}
	created := decodeBody[requestView](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/requests/"+created.RequestID+"/submit", map[string]string{"actor": "p-dent"})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d body=%s", rec.Code, rec.Body.String())
	}
	submitted := decodeBody[submitView](t, rec)
	if submitted.Status != "pending" || len(submitted.Chain) != 2 {
		t.Fatalf("submit = %+v", submitted)
	}

	rec = doJSON(t, h, http.MethodPost, "/requests/"+created.RequestID+"/decisions", map[string]string{
		"reviewer_id": "md-1",
		"decision":    "approved",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("out of turn status = %d, want 403", rec.Code)
	}
	if got := decodeBody[errorBody](t, rec); got.Error != "not_your_turn" {
		t.Fatalf("error body = %+v", got)
	}

	for _, reviewer := range []string{"h-dental", "md-1"} {
		rec = doJSON(t, h, http.MethodPost, "/requests/"+created.RequestID+"/decisions", map[string]string{
			"reviewer_id": reviewer,
			"decision":    "approved",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("decision by %s status = %d body=%s", reviewer, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, h, http.MethodGet, "/requests/"+created.RequestID+"/progress", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	progress := decodeBody[progressView](t, rec)
	if progress.Status != "approved" || progress.CompletedAt == "" || len(progress.Levels) != 2 {
		t.Fatalf("progress = %+v", progress)
	}

	rec = doJSON(t, h, http.MethodPost, "/requests/"+created.RequestID+"/decisions", map[string]string{
		"reviewer_id": "md-1",
		"decision":    "approved",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeat decision status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/metrics", nil)
	if !strings.Contains(rec.Body.String(), "privflow_decisions_total") {
		t.Fatalf("metrics missing decisions counter")
	}
}

func TestStaleExpectedVersionOverHTTP(t *testing.T) {
	h := setupServer(t)

	rec := doJSON(t, h, http.MethodPost, "/requests", map[string]any{"requester_id": "p-dent", "kind": "new", "privilege_ids": []string{"ortho-brackets"}})
	created := decodeBody[requestView](t, rec)
	if rec = doJSON(t, h, http.MethodPost, "/requests/"+created.RequestID+"/submit", nil); rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/requests/"+created.RequestID+"/progress", nil)
	seen := decodeBody[progressView](t, rec).Levels[0].Version

	path := "/requests/" + created.RequestID + "/decisions"
	returned := map[string]any{"reviewer_id": "h-dental", "decision": "returned_for_modification", "expected_version": seen}
	if rec = doJSON(t, h, http.MethodPost, path, returned); rec.Code != http.StatusOK {
		t.Fatalf("return status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec = doJSON(t, h, http.MethodPost, path, returned); rec.Code != http.StatusConflict {
		t.Fatalf("retried return status = %d, want 409", rec.Code)
	}
	if got := decodeBody[errorBody](t, rec); got.Error != "already_decided" {
		t.Fatalf("error body = %+v", got)
	}
}

func TestErrorMapping(t *testing.T) {
	h := setupServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{name: "missing request", method: http.MethodGet, path: "/requests/nope/progress", status: http.StatusNotFound, kind: "not_found"},
		{name: "unknown kind", method: http.MethodPost, path: "/requests", body: map[string]any{"requester_id": "p-dent", "kind": "upgrade"}, status: http.StatusBadRequest, kind: "validation_error"},
		{name: "unknown field", method: http.MethodPost, path: "/chain", body: map[string]any{"who": "p-dent"}, status: http.StatusBadRequest, kind: "validation_error"},
		{name: "no approver", method: http.MethodPost, path: "/chain", body: map[string]any{"requester_id": "h-dental", "kind": "new", "privilege_ids": []string{"ortho-brackets"}}, status: http.StatusUnprocessableEntity, kind: "no_approver_available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d body=%s", rec.Code, tt.status, rec.Body.String())
			}
			if got := decodeBody[errorBody](t, rec); got.Error != tt.kind {
				t.Fatalf("error = %q, want %q", got.Error, tt.kind)
			}
		})
	}
}

func TestSweepEndpoint(t *testing.T) {
	h := setupServer(t)

	rec := doJSON(t, h, http.MethodGet, "/escalations/last-sweep", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"last_sweep":null`) {
		t.Fatalf("last-sweep = %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/requests", map[string]any{"requester_id": "p-dent", "kind": "new", "privilege_ids": []string{"ortho-brackets"}})
	created := decodeBody[requestView](t, rec)
	if rec = doJSON(t, h, http.MethodPost, "/requests/"+created.RequestID+"/submit", nil); rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d body=%s", rec.Code, rec.Body.String())
	}

	future := time.Now().UTC().Add(9 * 24 * time.Hour).Format(time.RFC3339)
	rec = doJSON(t, h, http.MethodPost, "/escalations/sweep", map[string]string{"now": future})
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep status = %d body=%s", rec.Code, rec.Body.String())
	}
	events := decodeBody[[]escalationView](t, rec)
	if len(events) != 1 || events[0].Kind != "warning" || events[0].ReviewerID != "h-dental" {
		t.Fatalf("sweep events = %+v", events)
	}

	rec = doJSON(t, h, http.MethodPost, "/escalations/sweep", map[string]string{"now": "yesterday"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad now status = %d, want 400", rec.Code)
	}
}

func TestStatusForKind(t *testing.T) {
	if statusForKind("internal") != http.StatusInternalServerError {
		t.Fatalf("internal should map to 500")
	}
	if statusForKind("already_decided") != http.StatusConflict {
		t.Fatalf("already_decided should map to 409")
	}
}
