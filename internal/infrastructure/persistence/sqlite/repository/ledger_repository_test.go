package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"privflow/internal/domain/privileging"
	"privflow/internal/infrastructure/persistence/sqlite/model"
	"privflow/internal/ports"
)

func setupLedgerRepository(t *testing.T) *LedgerRepository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "ledger.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewLedgerRepository(db)
}

func seedPendingRequest(t *testing.T, repo *LedgerRepository, id string) []ports.ApprovalRecord {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if err := repo.CreateRequest(ctx, ports.Request{
		ID:          id,
		RequesterID: "p-1",
		Kind:        privileging.KindNew,
		Status:      privileging.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	records, err := repo.CreateApprovalRecords(ctx, []ports.ApprovalRecordCreate{
		{RequestID: id, Level: privileging.LevelDepartmentHead, ReviewerID: "h-1", CreatedAt: now},
		{RequestID: id, Level: privileging.LevelMedicalDirector, ReviewerID: "md-1", CreatedAt: now},
	})
	if err != nil {
		t.Fatalf("CreateApprovalRecords() error = %v", err)
	}
	return records
}

func TestDecideApprovalRecordCompareAndSwap(t *testing.T) {
	repo := setupLedgerRepository(t)
	ctx := context.Background()
	records := seedPendingRequest(t, repo, "r-1")

	first := records[0]
	write := ports.ApprovalDecisionWrite{
		RecordID:        first.RecordID,
		ExpectedVersion: first.Version,
		Status:          privileging.RecordApproved,
		Comment:         "ok",
		DecidedAt:       time.Now().UTC().Format(time.RFC3339Nano),
	}
	ok, err := repo.DecideApprovalRecord(ctx, write)
	if err != nil || !ok {
		t.Fatalf("DecideApprovalRecord() = %v, %v, want true", ok, err)
	}

	ok, err = repo.DecideApprovalRecord(ctx, write)
	if err != nil {
		t.Fatalf("DecideApprovalRecord(stale) error = %v", err)
	}
	if ok {
		t.Fatalf("DecideApprovalRecord(stale) = true, want false")
	}

	got, err := repo.ListApprovalRecords(ctx, "r-1")
	if err != nil {
		t.Fatalf("ListApprovalRecords() error = %v", err)
	}
	if got[0].Status != privileging.RecordApproved || got[0].Version != first.Version+1 || got[0].DecidedAt == nil {
		t.Fatalf("decided record = %+v", got[0])
	}
	if got[1].Level != privileging.LevelMedicalDirector || got[1].Status != privileging.RecordPending {
		t.Fatalf("second record = %+v", got[1])
	}
}

func TestApprovalRecordsUniquePerLevel(t *testing.T) {
	repo := setupLedgerRepository(t)
	seedPendingRequest(t, repo, "r-1")

	_, err := repo.CreateApprovalRecords(context.Background(), []ports.ApprovalRecordCreate{
		{RequestID: "r-1", Level: privileging.LevelDepartmentHead, ReviewerID: "h-2", CreatedAt: "x"},
	})
	if err == nil {
		t.Fatalf("CreateApprovalRecords(duplicate level) should fail")
	}
}

func TestUpdateRequestStatusRequiresExpectedStatus(t *testing.T) {
	repo := setupLedgerRepository(t)
	ctx := context.Background()
	seedPendingRequest(t, repo, "r-1")

	ok, err := repo.UpdateRequestStatus(ctx, ports.RequestStatusWrite{
		RequestID: "r-1",
		From:      privileging.StatusInReview,
		To:        privileging.StatusApproved,
		UpdatedAt: "now",
	})
	if err != nil || ok {
		t.Fatalf("UpdateRequestStatus(wrong from) = %v, %v, want false", ok, err)
	}

	completed := "2026-03-02T09:00:00Z"
	ok, err = repo.UpdateRequestStatus(ctx, ports.RequestStatusWrite{
		RequestID:   "r-1",
		From:        privileging.StatusPending,
		To:          privileging.StatusRejected,
		UpdatedAt:   completed,
		CompletedAt: &completed,
	})
	if err != nil || !ok {
		t.Fatalf("UpdateRequestStatus() = %v, %v, want true", ok, err)
	}

	req, err := repo.GetRequest(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetRequest() error = %v", err)
	}
	if req.Status != privileging.StatusRejected || req.CompletedAt == nil || *req.CompletedAt != completed {
		t.Fatalf("request = %+v", req)
	}

	if _, err := repo.GetRequest(ctx, "missing"); !errors.Is(err, ports.ErrRequestNotFound) {
		t.Fatalf("GetRequest(missing) error = %v, want ErrRequestNotFound", err)
	}
}

func TestEscalationRecordLifecycle(t *testing.T) {
	repo := setupLedgerRepository(t)
	ctx := context.Background()
	records := seedPendingRequest(t, repo, "r-1")

	opened, err := repo.OpenEscalation(ctx, ports.EscalationCreate{RequestID: "r-1", ApprovalRecordID: records[0].RecordID, ReceivedAt: "t0"})
	if err != nil {
		t.Fatalf("OpenEscalation() error = %v", err)
	}
	if _, err := repo.OpenEscalation(ctx, ports.EscalationCreate{RequestID: "r-1", ApprovalRecordID: records[1].RecordID, ReceivedAt: "t1"}); !errors.Is(err, privileging.ErrInvalidState) {
		t.Fatalf("second OpenEscalation() error = %v, want ErrInvalidState", err)
	}

	ok, err := repo.UpdateEscalation(ctx, ports.EscalationUpdate{EscalationID: opened.EscalationID, ExpectedVersion: opened.Version, Warned: true})
	if err != nil || !ok {
		t.Fatalf("UpdateEscalation() = %v, %v, want true", ok, err)
	}
	ok, err = repo.UpdateEscalation(ctx, ports.EscalationUpdate{EscalationID: opened.EscalationID, ExpectedVersion: opened.Version, Level: 1})
	if err != nil || ok {
		t.Fatalf("UpdateEscalation(stale version) = %v, %v, want false", ok, err)
	}

	closed, err := repo.CloseOpenEscalations(ctx, "r-1", "t2")
	if err != nil || closed != 1 {
		t.Fatalf("CloseOpenEscalations() = %d, %v, want 1", closed, err)
	}
	if _, found, err := repo.GetOpenEscalation(ctx, "r-1"); err != nil || found {
		t.Fatalf("GetOpenEscalation() after close = %v, %v", found, err)
	}

	current, err := repo.GetEscalation(ctx, opened.EscalationID)
	if err != nil {
		t.Fatalf("GetEscalation() error = %v", err)
	}
	ok, err = repo.UpdateEscalation(ctx, ports.EscalationUpdate{EscalationID: current.EscalationID, ExpectedVersion: current.Version, Level: 1})
	if err != nil || ok {
		t.Fatalf("UpdateEscalation(closed) = %v, %v, want false", ok, err)
	}

	if _, err := repo.GetEscalation(ctx, 9999); !errors.Is(err, ports.ErrEscalationNotFound) {
		t.Fatalf("GetEscalation(missing) error = %v, want ErrEscalationNotFound", err)
	}

	if _, err := repo.OpenEscalation(ctx, ports.EscalationCreate{RequestID: "r-1", ApprovalRecordID: records[1].RecordID, ReceivedAt: "t3"}); err != nil {
		t.Fatalf("OpenEscalation() after close error = %v", err)
	}
	if err := repo.DeleteLedger(ctx, "r-1"); err != nil {
		t.Fatalf("DeleteLedger() error = %v", err)
	}
	if remaining, err := repo.ListApprovalRecords(ctx, "r-1"); err != nil || len(remaining) != 0 {
		t.Fatalf("ListApprovalRecords() after delete = %v, %v", remaining, err)
	}
	if open, err := repo.ListOpenEscalations(ctx); err != nil || len(open) != 0 {
		t.Fatalf("ListOpenEscalations() after delete = %v, %v", open, err)
	}
}

func TestAddPrivilegeLineRejectsDuplicate(t *testing.T) {
	repo := setupLedgerRepository(t)
	ctx := context.Background()
	seedPendingRequest(t, repo, "r-1")

	line := ports.PrivilegeLine{RequestID: "r-1", PrivilegeID: "ortho", CreatedAt: "t0"}
	added, err := repo.AddPrivilegeLine(ctx, line)
	if err != nil {
		t.Fatalf("AddPrivilegeLine() error = %v", err)
	}
	if added.Decision != privileging.LineUndecided {
		t.Fatalf("AddPrivilegeLine() decision = %q, want undecided", added.Decision)
	}
	if _, err := repo.AddPrivilegeLine(ctx, line); !errors.Is(err, ports.ErrDuplicateLine) {
		t.Fatalf("AddPrivilegeLine(duplicate) error = %v, want ErrDuplicateLine", err)
	}
}
