package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "privflow/internal/domain/privileging"
	"privflow/internal/errs"
	"privflow/internal/usecase/privileging"
)

type createRequestBody struct {
	RequesterID  string   `json:"requester_id"`
	Kind         string   `json:"kind"`
	PrivilegeIDs []string `json:"privilege_ids"`
}

type lineBody struct {
	PrivilegeID string `json:"privilege_id"`
	Actor       string `json:"actor"`
}

type submitBody struct {
	Actor string `json:"actor"`
}

type lineDecisionBody struct {
	PrivilegeID string `json:"privilege_id"`
	Decision    string `json:"decision"`
	Comment     string `json:"comment"`
}

type decisionBody struct {
	ReviewerID    string             `json:"reviewer_id"`
	Decision      string             `json:"decision"`
	Comment       string             `json:"comment"`
	LineDecisions []lineDecisionBody `json:"line_decisions"`
	ExpectedLevel   string             `json:"expected_level"`
	ExpectedVersion *int               `json:"expected_version"`
}

type sweepBody struct {
	Now string `json:"now"`
}

type lineView struct {
	PrivilegeID string `json:"privilege_id"`
	Decision    string `json:"decision"`
	Comment     string `json:"comment,omitempty"`
	DecidedBy   string `json:"decided_by,omitempty"`
}

type requestView struct {
	RequestID   string     `json:"request_id"`
	RequesterID string     `json:"requester_id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	CreatedAt   string     `json:"created_at"`
	SubmittedAt string     `json:"submitted_at,omitempty"`
	CompletedAt string     `json:"completed_at,omitempty"`
	Lines       []lineView `json:"lines,omitempty"`
}

type stepView struct {
	Level        string `json:"level"`
	ReviewerID   string `json:"reviewer_id"`
	ReviewerName string `json:"reviewer_name,omitempty"`
}

type chainView struct {
	Steps             []stepView `json:"steps"`
	SpecialtyMatch    bool       `json:"specialty_match"`
	SkippedSupervisor bool       `json:"skipped_supervisor"`
	CoreOnly          bool       `json:"core_only"`
}

type submitView struct {
	RequestID    string     `json:"request_id"`
	Status       string     `json:"status"`
	Chain        []stepView `json:"chain"`
	AutoApproved bool       `json:"auto_approved"`
}

type decisionView struct {
	RequestID      string `json:"request_id"`
	Level          string `json:"level"`
	Decision       string `json:"decision"`
	Status         string `json:"status"`
	NextLevel      string `json:"next_level,omitempty"`
	NextReviewerID string `json:"next_reviewer_id,omitempty"`
	CompletedAt    string `json:"completed_at,omitempty"`
}

type levelView struct {
	Level      string `json:"level"`
	ReviewerID string `json:"reviewer_id"`
	Status     string `json:"status"`
	Comment    string `json:"comment,omitempty"`
	DecidedAt  string `json:"decided_at,omitempty"`
	Version    int    `json:"version"`
}

type progressView struct {
	RequestID         string      `json:"request_id"`
	Status            string      `json:"status"`
	Levels            []levelView `json:"levels"`
	CurrentLevel      string      `json:"current_level,omitempty"`
	CurrentReviewerID string      `json:"current_reviewer_id,omitempty"`
	IsEscalated       bool        `json:"is_escalated"`
	EscalationLevel   int         `json:"escalation_level"`
	DaysPending       int         `json:"days_pending"`
	SubmittedAt       string      `json:"submitted_at,omitempty"`
	CompletedAt       string      `json:"completed_at,omitempty"`
}

type eventView struct {
	EventID   uint64 `json:"event_id"`
	Actor     string `json:"actor"`
	Kind      string `json:"kind"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

type escalationView struct {
	RequestID       string `json:"request_id"`
	Level           string `json:"level"`
	ReviewerID      string `json:"reviewer_id"`
	Kind            string `json:"kind"`
	EscalationLevel int    `json:"escalation_level"`
	DaysPending     int    `json:"days_pending"`
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := s.workflow.CreateRequest(r.Context(), privileging.CreateRequestInput{
		RequesterID:  body.RequesterID,
		Kind:         body.Kind,
		PrivilegeIDs: body.PrivilegeIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestView(detail))
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var statuses []string
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		statuses = strings.Split(raw, ",")
	}
	items, err := s.workflow.ListRequests(r.Context(), q.Get("requester_id"), statuses)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]requestView, 0, len(items))
	for _, item := range items {
		out = append(out, toRequestView(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	detail, err := s.workflow.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(detail))
}

func (s *Server) addLine(w http.ResponseWriter, r *http.Request) {
	var body lineBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := s.workflow.AddPrivilegeLine(r.Context(), privileging.PrivilegeLineInput{
		RequestID:   chi.URLParam(r, "requestID"),
		PrivilegeID: body.PrivilegeID,
		Actor:       body.Actor,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(detail))
}

func (s *Server) removeLine(w http.ResponseWriter, r *http.Request) {
	detail, err := s.workflow.RemovePrivilegeLine(r.Context(), privileging.PrivilegeLineInput{
		RequestID:   chi.URLParam(r, "requestID"),
		PrivilegeID: chi.URLParam(r, "privilegeID"),
		Actor:       r.URL.Query().Get("actor"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestView(detail))
}

func (s *Server) buildChain(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	chain, err := s.workflow.BuildChain(r.Context(), privileging.BuildChainInput{
		RequesterID:  body.RequesterID,
		PrivilegeIDs: body.PrivilegeIDs,
		Kind:         body.Kind,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chainView{
		Steps:             toStepViews(chain.Steps),
		SpecialtyMatch:    chain.SpecialtyMatch,
		SkippedSupervisor: chain.SkippedSupervisor,
		CoreOnly:          chain.CoreOnly,
	})
}

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
	}
	result, err := s.workflow.SubmitRequest(r.Context(), privileging.SubmitRequestInput{
		RequestID: chi.URLParam(r, "requestID"),
		Actor:     body.Actor,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitView{
		RequestID:    result.RequestID,
		Status:       string(result.Status),
		Chain:        toStepViews(result.Chain),
		AutoApproved: result.AutoApproved,
	})
}

func (s *Server) submitDecision(w http.ResponseWriter, r *http.Request) {
	var body decisionBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	lines := make([]privileging.LineDecisionInput, 0, len(body.LineDecisions))
	for _, l := range body.LineDecisions {
		lines = append(lines, privileging.LineDecisionInput{PrivilegeID: l.PrivilegeID, Decision: l.Decision, Comment: l.Comment})
	}

	result, err := s.workflow.SubmitDecision(r.Context(), privileging.DecisionInput{
		RequestID:     chi.URLParam(r, "requestID"),
		ReviewerID:    body.ReviewerID,
		Decision:      body.Decision,
		Comment:       body.Comment,
		LineDecisions: lines,
		ExpectedLevel:   body.ExpectedLevel,
		ExpectedVersion: body.ExpectedVersion,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	view := decisionView{
		RequestID:      result.RequestID,
		Level:          result.Level.String(),
		Decision:       string(result.Decision),
		Status:         string(result.Status),
		NextReviewerID: result.NextReviewerID,
		CompletedAt:    result.CompletedAt,
	}
	if result.NextLevel != 0 {
		view.NextLevel = result.NextLevel.String()
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.workflow.GetProgress(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	view := progressView{
		RequestID:         p.RequestID,
		Status:            string(p.Status),
		Levels:            make([]levelView, 0, len(p.Levels)),
		CurrentReviewerID: p.CurrentReviewerID,
		IsEscalated:       p.IsEscalated,
		EscalationLevel:   p.EscalationLevel,
		DaysPending:       p.DaysPending,
		SubmittedAt:       p.SubmittedAt,
		CompletedAt:       p.CompletedAt,
	}
	if p.CurrentLevel != 0 {
		view.CurrentLevel = p.CurrentLevel.String()
	}
	for _, l := range p.Levels {
		view.Levels = append(view.Levels, levelView{
			Level:      l.Level.String(),
			ReviewerID: l.ReviewerID,
			Status:     string(l.Status),
			Comment:    l.Comment,
			DecidedAt:  l.DecidedAt,
			Version:    l.Version,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.workflow.ListRequestEvents(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]eventView, 0, len(events))
	for _, ev := range events {
		out = append(out, eventView{EventID: ev.EventID, Actor: ev.Actor, Kind: ev.Kind, Body: ev.Body, CreatedAt: ev.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	var body sweepBody
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
	}
	var now time.Time
	if raw := strings.TrimSpace(body.Now); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, errs.Wrap(domain.ErrValidation, "now must be RFC3339"))
			return
		}
		now = parsed
	}

	events, err := s.workflow.SweepEscalations(r.Context(), now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]escalationView, 0, len(events))
	for _, ev := range events {
		out = append(out, escalationView{
			RequestID:       ev.RequestID,
			Level:           ev.Level.String(),
			ReviewerID:      ev.ReviewerID,
			Kind:            ev.Kind,
			EscalationLevel: ev.EscalationLevel,
			DaysPending:     ev.DaysPending,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lastSweep(w http.ResponseWriter, r *http.Request) {
	at, ok, err := s.workflow.GetLastSweep(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"last_sweep": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"last_sweep": at.UTC().Format(time.RFC3339)})
}

func toRequestView(d privileging.RequestDetail) requestView {
	view := requestView{
		RequestID:   d.RequestID,
		RequesterID: d.RequesterID,
		Kind:        string(d.Kind),
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt,
		SubmittedAt: d.SubmittedAt,
		CompletedAt: d.CompletedAt,
	}
	for _, l := range d.Lines {
		view.Lines = append(view.Lines, lineView{
			PrivilegeID: l.PrivilegeID,
			Decision:    string(l.Decision),
			Comment:     l.Comment,
			DecidedBy:   l.DecidedBy,
		})
	}
	return view
}

func toStepViews(steps []privileging.ChainStep) []stepView {
	out := make([]stepView, 0, len(steps))
	for _, step := range steps {
		out = append(out, stepView{Level: step.Level.String(), ReviewerID: step.ReviewerID, ReviewerName: step.ReviewerName})
	}
	return out
}
