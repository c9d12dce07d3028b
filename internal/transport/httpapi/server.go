package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"privflow/internal/bootstrap/logging"
	domain "privflow/internal/domain/privileging"
	"privflow/internal/errs"
	"privflow/internal/usecase/privileging"
)

// Workflow is the part of the privileging service exposed over HTTP.
type Workflow interface {
	CreateRequest(ctx context.Context, input privileging.CreateRequestInput) (privileging.RequestDetail, error)
	AddPrivilegeLine(ctx context.Context, input privileging.PrivilegeLineInput) (privileging.RequestDetail, error)
	RemovePrivilegeLine(ctx context.Context, input privileging.PrivilegeLineInput) (privileging.RequestDetail, error)
	GetRequest(ctx context.Context, requestID string) (privileging.RequestDetail, error)
	ListRequests(ctx context.Context, requesterID string, statuses []string) ([]privileging.RequestDetail, error)
	BuildChain(ctx context.Context, input privileging.BuildChainInput) (privileging.Chain, error)
	SubmitRequest(ctx context.Context, input privileging.SubmitRequestInput) (privileging.SubmitResult, error)
	SubmitDecision(ctx context.Context, input privileging.DecisionInput) (privileging.DecisionResult, error)
	GetProgress(ctx context.Context, requestID string) (privileging.Progress, error)
	ListRequestEvents(ctx context.Context, requestID string) ([]privileging.EventItem, error)
	SweepEscalations(ctx context.Context, now time.Time) ([]privileging.EscalationEvent, error)
	GetLastSweep(ctx context.Context) (time.Time, bool, error)
}

const requestIDHeader = "X-Request-ID"

type Server struct {
	workflow Workflow
	metrics  http.Handler
}

// NewServer builds the API. metrics may be nil, in which case /metrics is not
// mounted.
func NewServer(workflow Workflow, metrics http.Handler) *Server {
	return &Server{workflow: workflow, metrics: metrics}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Post("/chain", s.buildChain)

	r.Route("/requests", func(r chi.Router) {
		r.Post("/", s.createRequest)
		r.Get("/", s.listRequests)
		r.Route("/{requestID}", func(r chi.Router) {
			r.Get("/", s.getRequest)
			r.Post("/lines", s.addLine)
			r.Delete("/lines/{privilegeID}", s.removeLine)
			r.Post("/submit", s.submitRequest)
			r.Post("/decisions", s.submitDecision)
			r.Get("/progress", s.getProgress)
			r.Get("/events", s.listEvents)
		})
	})

	r.Route("/escalations", func(r chi.Router) {
		r.Post("/sweep", s.sweep)
		r.Get("/last-sweep", s.lastSweep)
	})
	return r
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := logging.WithAttrs(
			r.Context(),
			slog.String("component", "httpapi"),
			slog.String("http_request_id", id),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusForKind(kind string) int {
	switch kind {
	case "validation_error":
		return http.StatusBadRequest
	case "no_approver_available":
		return http.StatusUnprocessableEntity
	case "not_found":
		return http.StatusNotFound
	case "not_your_turn", "forbidden":
		return http.StatusForbidden
	case "invalid_state", "already_decided":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.ErrorKind(err)
	status := statusForKind(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error(r.Context(), "request failed", slog.Any("err", errs.Loggable(err)))
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: kind, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

var errEmptyBody = fmt.Errorf("%w: request body is required", domain.ErrValidation)

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.Wrap(domain.ErrValidation, "decode body: "+err.Error())
	}
	return nil
}
