package privileging

import (
	"context"
	"errors"
	"time"

	domain "privflow/internal/domain/privileging"
	"privflow/internal/ports"
)

// Notification kinds sent to the dispatcher.
const (
	NotifyRequestSubmitted  = "request_submitted"
	NotifyReviewRequested   = "review_requested"
	NotifyRequestReturned   = "request_returned"
	NotifyRequestApproved   = "request_approved"
	NotifyRequestRejected   = "request_rejected"
	NotifyEscalationWarning = "escalation_warning"
	NotifyEscalationRaised  = "escalation_raised"
)

// Request event kinds appended to the audit trail.
const (
	eventCreated    = "created"
	eventSubmitted  = "submitted"
	eventDecision   = "decision"
	eventEscalation = "escalation"
)

const (
	systemActor        = "system"
	cacheLastSweepKey  = "escalation:last_sweep"
	defaultSweepWorker = 4
	requestStatusTTL   = 24 * time.Hour
)

var (
	errRequestIDRequired   = errors.New("request id is required")
	errReviewerIDRequired  = errors.New("reviewer id is required")
	errRequesterIDRequired = errors.New("requester id is required")
)

type Options struct {
	Policy          domain.EscalationPolicy
	AutoApproveCore bool
	SweepWorkers    int
	Now             func() time.Time
}

type Service struct {
	repo      ports.LedgerRepository
	directory ports.OrganizationDirectory
	uow       ports.UnitOfWork
	notifier  ports.Notifier
	metrics   ports.WorkflowMetrics
	cache     ports.Cache
	opts      Options
}

// NewService wires the approval workflow. notifier, metrics and cache are
// optional.
func NewService(
	repo ports.LedgerRepository,
	directory ports.OrganizationDirectory,
	uow ports.UnitOfWork,
	notifier ports.Notifier,
	metrics ports.WorkflowMetrics,
	cache ports.Cache,
	opts Options,
) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SweepWorkers <= 0 {
		opts.SweepWorkers = defaultSweepWorker
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{
		repo:      repo,
		directory: directory,
		uow:       uow,
		notifier:  notifier,
		metrics:   metrics,
		cache:     cache,
		opts:      opts,
	}
}

func (s *Service) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.repo == nil {
		return errors.New("ledger repository is required")
	}
	if s.directory == nil {
		return errors.New("organization directory is required")
	}
	if s.uow == nil {
		return errors.New("unit of work is required")
	}
	return nil
}

type CreateRequestInput struct {
	RequesterID  string
	Kind         string
	PrivilegeIDs []string
}

type PrivilegeLineInput struct {
	RequestID   string
	PrivilegeID string
	Actor       string
}

type SubmitRequestInput struct {
	RequestID string
	// Actor, when set, must be the requester.
	Actor string
}

type SubmitResult struct {
	RequestID    string
	Status       domain.RequestStatus
	Chain        []ChainStep
	AutoApproved bool
}

type LineDecisionInput struct {
	PrivilegeID string
	Decision    string
	Comment     string
}

type DecisionInput struct {
	RequestID     string
	ReviewerID    string
	Decision      string
	Comment       string
	LineDecisions []LineDecisionInput
	// ExpectedLevel is the level the reviewer believes is active. A decided
	// record at that level turns a stale retry into ErrAlreadyDecided.
	ExpectedLevel string
	// ExpectedVersion, when set, must equal the version of the record being
	// decided. Progress reports the current version of every level.
	ExpectedVersion *int
}

type DecisionResult struct {
	RequestID      string
	Level          domain.ReviewLevel
	Decision       domain.Decision
	Status         domain.RequestStatus
	NextLevel      domain.ReviewLevel
	NextReviewerID string
	CompletedAt    string
}

type RequestLine struct {
	PrivilegeID string
	Decision    domain.LineDecision
	Comment     string
	DecidedBy   string
}

type RequestDetail struct {
	RequestID   string
	RequesterID string
	Kind        domain.RequestKind
	Status      domain.RequestStatus
	CreatedAt   string
	SubmittedAt string
	CompletedAt string
	Lines       []RequestLine
}

type LevelProgress struct {
	Level      domain.ReviewLevel
	ReviewerID string
	Status     domain.RecordStatus
	Comment    string
	DecidedAt  string
	Version    int
}

type Progress struct {
	RequestID         string
	Status            domain.RequestStatus
	Levels            []LevelProgress
	CurrentLevel      domain.ReviewLevel
	CurrentReviewerID string
	IsEscalated       bool
	EscalationLevel   int
	DaysPending       int
	SubmittedAt       string
	CompletedAt       string
}

type EventItem struct {
	EventID   uint64
	Actor     string
	Kind      string
	Body      string
	CreatedAt string
}

type EscalationEvent struct {
	EscalationID    uint64
	RequestID       string
	Level           domain.ReviewLevel
	ReviewerID      string
	Kind            string
	EscalationLevel int
	DaysPending     int
}

type noopMetrics struct{}

func (noopMetrics) ObserveSubmission(string)       {}
func (noopMetrics) ObserveDecision(string, string) {}
func (noopMetrics) ObserveEscalation(string)       {}
func (noopMetrics) SetOpenEscalations(int)         {}
