package ports

import (
	"context"
	"errors"

	"privflow/internal/domain/privileging"
)

var (
	ErrRequestNotFound    = errors.New("privilege request not found")
	ErrEscalationNotFound = errors.New("escalation record not found")
	ErrDuplicateLine      = errors.New("privilege already requested")
)

type Request struct {
	ID          string
	RequesterID string
	Kind        privileging.RequestKind
	Status      privileging.RequestStatus
	CreatedAt   string
	UpdatedAt   string
	SubmittedAt *string
	CompletedAt *string
}

type PrivilegeLine struct {
	LineID      uint64
	RequestID   string
	PrivilegeID string
	Decision    privileging.LineDecision
	Comment     string
	DecidedBy   *string
	CreatedAt   string
}

type ApprovalRecord struct {
	RecordID   uint64
	RequestID  string
	Level      privileging.ReviewLevel
	ReviewerID string
	Status     privileging.RecordStatus
	Comment    string
	DecidedAt  *string
	CreatedAt  string
	Version    int
}

type ApprovalRecordCreate struct {
	RequestID  string
	Level      privileging.ReviewLevel
	ReviewerID string
	CreatedAt  string
}

// ApprovalDecisionWrite is applied only if the record is still pending at
// ExpectedVersion.
type ApprovalDecisionWrite struct {
	RecordID        uint64
	ExpectedVersion int
	Status          privileging.RecordStatus
	Comment         string
	DecidedAt       string
}

// RequestStatusWrite is applied only if the request is still in From.
type RequestStatusWrite struct {
	RequestID   string
	From        privileging.RequestStatus
	To          privileging.RequestStatus
	UpdatedAt   string
	SubmittedAt *string
	CompletedAt *string
	// ClearCompletedAt resets completed_at on resubmission.
	ClearCompletedAt bool
}

type LineDecisionWrite struct {
	RequestID string
	LineID    uint64
	Decision  privileging.LineDecision
	Comment   string
	DecidedBy string
}

type EscalationRecord struct {
	EscalationID     uint64
	RequestID        string
	ApprovalRecordID uint64
	ReceivedAt       string
	Level            int
	Warned           bool
	ClosedAt         *string
	Version          int
}

type EscalationCreate struct {
	RequestID        string
	ApprovalRecordID uint64
	ReceivedAt       string
}

// EscalationUpdate is applied only if the record is still open at
// ExpectedVersion.
type EscalationUpdate struct {
	EscalationID    uint64
	ExpectedVersion int
	Level           int
	Warned          bool
}

type RequestEvent struct {
	EventID   uint64
	RequestID string
	Actor     string
	Kind      string
	Body      string
	CreatedAt string
}

type RequestEventCreate struct {
	RequestID string
	Actor     string
	Kind      string
	Body      string
	CreatedAt string
}

type RequestFilter struct {
	RequesterID string
	Statuses    []privileging.RequestStatus
}

type LedgerReadRepository interface {
	GetRequest(ctx context.Context, id string) (Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)
	ListPrivilegeLines(ctx context.Context, requestID string) ([]PrivilegeLine, error)
	// ListApprovalRecords returns records in ascending level order.
	ListApprovalRecords(ctx context.Context, requestID string) ([]ApprovalRecord, error)
	GetOpenEscalation(ctx context.Context, requestID string) (EscalationRecord, bool, error)
	GetEscalation(ctx context.Context, escalationID uint64) (EscalationRecord, error)
	ListOpenEscalations(ctx context.Context) ([]EscalationRecord, error)
	ListEvents(ctx context.Context, requestID string) ([]RequestEvent, error)
}

type LedgerRepository interface {
	LedgerReadRepository
	CreateRequest(ctx context.Context, req Request) error
	UpdateRequestStatus(ctx context.Context, write RequestStatusWrite) (bool, error)
	AddPrivilegeLine(ctx context.Context, line PrivilegeLine) (PrivilegeLine, error)
	RemovePrivilegeLine(ctx context.Context, requestID string, privilegeID string) (bool, error)
	SetLineDecision(ctx context.Context, write LineDecisionWrite) (bool, error)
	ResetLineDecisions(ctx context.Context, requestID string) error
	CreateApprovalRecords(ctx context.Context, records []ApprovalRecordCreate) ([]ApprovalRecord, error)
	DecideApprovalRecord(ctx context.Context, write ApprovalDecisionWrite) (bool, error)
	// DeleteLedger drops approval and escalation records of a request.
	DeleteLedger(ctx context.Context, requestID string) error
	OpenEscalation(ctx context.Context, input EscalationCreate) (EscalationRecord, error)
	CloseOpenEscalations(ctx context.Context, requestID string, closedAt string) (int64, error)
	UpdateEscalation(ctx context.Context, update EscalationUpdate) (bool, error)
	AppendEvent(ctx context.Context, input RequestEventCreate) error
}
