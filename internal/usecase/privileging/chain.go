package privileging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"privflow/internal/bootstrap/logging"
	domain "privflow/internal/domain/privileging"
	"privflow/internal/ports"
)

type BuildChainInput struct {
	RequesterID  string
	PrivilegeIDs []string
	Kind         string
}

type ChainStep struct {
	Level        domain.ReviewLevel
	ReviewerID   string
	ReviewerName string
}

type Chain struct {
	Steps             []ChainStep
	SpecialtyMatch    bool
	SkippedSupervisor bool
	// CoreOnly is set when every requested privilege is core; Steps is empty.
	CoreOnly bool
}

// Levels returns the chain levels in order.
func (c Chain) Levels() []domain.ReviewLevel {
	levels := make([]domain.ReviewLevel, 0, len(c.Steps))
	for _, step := range c.Steps {
		levels = append(levels, step.Level)
	}
	return levels
}

// BuildChain resolves the ordered reviewer sequence for a prospective request.
// It reads the directory only and persists nothing.
func (s *Service) BuildChain(ctx context.Context, input BuildChainInput) (Chain, error) {
	if err := s.ready(ctx); err != nil {
		return Chain{}, err
	}
	requesterID := strings.TrimSpace(input.RequesterID)
	if requesterID == "" {
		return Chain{}, fmt.Errorf("%w: %v", domain.ErrValidation, errRequesterIDRequired)
	}
	kind, err := domain.ParseRequestKind(input.Kind)
	if err != nil {
		return Chain{}, err
	}
	privilegeIDs := normalizeIDs(input.PrivilegeIDs)
	if len(privilegeIDs) == 0 {
		return Chain{}, fmt.Errorf("%w: at least one privilege is required", domain.ErrValidation)
	}

	requester, err := s.directory.GetPractitioner(ctx, requesterID)
	if err != nil {
		if errors.Is(err, ports.ErrPractitionerNotFound) {
			return Chain{}, fmt.Errorf("%w: requester %s", domain.ErrNotFound, requesterID)
		}
		return Chain{}, err
	}

	privileges, err := s.directory.GetPrivileges(ctx, privilegeIDs)
	if err != nil {
		if errors.Is(err, ports.ErrPrivilegeNotFound) {
			return Chain{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return Chain{}, err
	}

	required := make([]string, 0, len(privileges))
	for _, p := range privileges {
		if p.Core {
			continue
		}
		required = append(required, p.RequiredSpecialty)
	}
	if len(required) == 0 {
		return Chain{CoreOnly: true, SpecialtyMatch: true}, nil
	}

	match := domain.SpecialtyMatch(requester.AllSpecialties(), required)
	levels := domain.RequiredLevels(requester.Type, kind, match)

	chain := Chain{SpecialtyMatch: match}
	scope := ports.ReviewerScope{
		Department: requester.Department,
		ExcludeIDs: []string{requester.ID},
	}
	for _, level := range levels {
		if level == domain.LevelSupervisor {
			manager, ok, err := s.directory.GetManager(ctx, requester.ID)
			if err != nil {
				return Chain{}, err
			}
			if !ok || !manager.Active || manager.Role != domain.RoleSupervisor {
				chain.SkippedSupervisor = true
				continue
			}
			chain.Steps = append(chain.Steps, ChainStep{Level: level, ReviewerID: manager.ID, ReviewerName: manager.Name})
			continue
		}

		reviewer, ok, err := s.directory.FindReviewer(ctx, level, scope)
		if err != nil {
			return Chain{}, err
		}
		if !ok {
			return Chain{}, fmt.Errorf("%w: %s for requester %s", domain.ErrNoApproverAvailable, level, requester.ID)
		}
		chain.Steps = append(chain.Steps, ChainStep{Level: level, ReviewerID: reviewer.ID, ReviewerName: reviewer.Name})
	}

	if err := domain.ValidateChain(chain.Levels()); err != nil {
		return Chain{}, err
	}

	logging.Debug(
		logContext(ctx, "build_chain", slog.String("requester_id", requester.ID)),
		"chain resolved",
		slog.Int("steps", len(chain.Steps)),
		slog.Bool("specialty_match", match),
		slog.Bool("skipped_supervisor", chain.SkippedSupervisor),
	)
	return chain, nil
}
