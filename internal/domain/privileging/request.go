package privileging

import (
	"fmt"
	"strings"
)

type RequestKind string

const (
	KindNew           RequestKind = "new"
	KindRenewal       RequestKind = "renewal"
	KindReapplication RequestKind = "reapplication"
	KindExpansion     RequestKind = "expansion"
)

func ParseRequestKind(raw string) (RequestKind, error) {
	kind := RequestKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case KindNew, KindRenewal, KindReapplication, KindExpansion:
		return kind, nil
	case "additional":
		return KindExpansion, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRequestKind, raw)
}

type PractitionerType string

const (
	TypePhysician    PractitionerType = "physician"
	TypeDentist      PractitionerType = "dentist"
	TypeResident     PractitionerType = "resident"
	TypeNurse        PractitionerType = "nurse"
	TypeAlliedHealth PractitionerType = "allied_health"
)

func ParsePractitionerType(raw string) (PractitionerType, error) {
	pt := PractitionerType(strings.ToLower(strings.TrimSpace(raw)))
	switch pt {
	case TypePhysician, TypeDentist, TypeResident, TypeNurse, TypeAlliedHealth:
		return pt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPractitionerType, raw)
}

type RequestStatus string

const (
	StatusDraft    RequestStatus = "draft"
	StatusPending  RequestStatus = "pending"
	StatusInReview RequestStatus = "in_review"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Decidable reports whether reviewers may act on a request in this status.
func (s RequestStatus) Decidable() bool {
	return s == StatusPending || s == StatusInReview
}

func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Submittable reports whether the requester may submit (or resubmit).
func (s RequestStatus) Submittable() bool {
	return s == StatusDraft || s == StatusRejected
}

// RecordStatus is the status of a single approval record.
type RecordStatus string

const (
	RecordPending  RecordStatus = "pending"
	RecordApproved RecordStatus = "approved"
	RecordRejected RecordStatus = "rejected"
)

// Decision is what a reviewer submits for the active level.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	DecisionReturned Decision = "returned_for_modification"
)

func ParseDecision(raw string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "approve":
		return DecisionApproved, nil
	case "rejected", "reject":
		return DecisionRejected, nil
	case "returned_for_modification", "returned", "return":
		return DecisionReturned, nil
	}
	return "", fmt.Errorf("%w: malformed decision %q", ErrValidation, raw)
}

// RecordStatus is the approval record status a decision writes. A return
// keeps the record pending.
func (d Decision) RecordStatus() RecordStatus {
	switch d {
	case DecisionApproved:
		return RecordApproved
	case DecisionRejected:
		return RecordRejected
	default:
		return RecordPending
	}
}

type LineDecision string

const (
	LineUndecided LineDecision = "undecided"
	LineGranted   LineDecision = "granted"
	LineDenied    LineDecision = "denied"
)

func ParseLineDecision(raw string) (LineDecision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "granted", "grant":
		return LineGranted, nil
	case "denied", "deny":
		return LineDenied, nil
	}
	return "", fmt.Errorf("%w: malformed line decision %q", ErrValidation, raw)
}
