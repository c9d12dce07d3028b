package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"privflow/internal/bootstrap/logging"
	domain "privflow/internal/domain/privileging"
	"privflow/internal/errs"
	"privflow/internal/ports"
)

type practitionerEntry struct {
	ID               string   `toml:"id"`
	Name             string   `toml:"name"`
	Role             string   `toml:"role"`
	Type             string   `toml:"type"`
	Department       string   `toml:"department"`
	PrimarySpecialty string   `toml:"primary_specialty"`
	Specialties      []string `toml:"specialties"`
	ManagerID        string   `toml:"manager_id"`
	Active           *bool    `toml:"active"`
}

type privilegeEntry struct {
	ID                string `toml:"id"`
	Name              string `toml:"name"`
	RequiredSpecialty string `toml:"required_specialty"`
	Core              bool   `toml:"core"`
}

// File is the organization directory seed format.
type File struct {
	Version       int                 `toml:"version"`
	Practitioners []practitionerEntry `toml:"practitioners"`
	Privileges    []privilegeEntry    `toml:"privileges"`
}

type ImportResult struct {
	Practitioners int
	Privileges    int
}

type Service struct {
	writer ports.DirectoryWriter
	uow    ports.UnitOfWork
}

func NewService(writer ports.DirectoryWriter, uow ports.UnitOfWork) *Service {
	return &Service{writer: writer, uow: uow}
}

func LoadFile(path string) (File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return File{}, errors.New("directory file is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (File, error) {
	var file File
	if err := toml.Unmarshal(raw, &file); err != nil {
		return File{}, errs.Wrap(err, "decode directory toml")
	}
	if file.Version != 1 {
		return File{}, fmt.Errorf("unsupported directory version %d: expected version = 1", file.Version)
	}
	return file, nil
}

// Import validates the whole file before writing anything, then upserts it
// in one transaction.
func (s *Service) Import(ctx context.Context, file File) (ImportResult, error) {
	if ctx == nil {
		return ImportResult{}, errors.New("context is required")
	}
	if s.writer == nil || s.uow == nil {
		return ImportResult{}, errors.New("directory writer and unit of work are required")
	}

	practitioners, err := convertPractitioners(file.Practitioners)
	if err != nil {
		return ImportResult{}, err
	}
	privileges, err := convertPrivileges(file.Privileges)
	if err != nil {
		return ImportResult{}, err
	}

	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		for _, p := range practitioners {
			if err := s.writer.UpsertPractitioner(txCtx, p); err != nil {
				return errs.Wrapf(err, "practitioner %s", p.ID)
			}
		}
		for _, p := range privileges {
			if err := s.writer.UpsertPrivilege(txCtx, p); err != nil {
				return errs.Wrapf(err, "privilege %s", p.ID)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Practitioners: len(practitioners), Privileges: len(privileges)}
	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "usecase.directory")),
		"directory imported",
		slog.Int("practitioners", result.Practitioners),
		slog.Int("privileges", result.Privileges),
	)
	return result, nil
}

func convertPractitioners(entries []practitionerEntry) ([]ports.Practitioner, error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]ports.Practitioner, 0, len(entries))
	for i, entry := range entries {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: practitioners[%d].id is required", domain.ErrValidation, i)
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: duplicate practitioner %s", domain.ErrValidation, id)
		}
		seen[id] = struct{}{}

		role, err := domain.ParseRole(entry.Role)
		if err != nil {
			return nil, errs.Wrapf(err, "practitioner %s", id)
		}
		pt, err := domain.ParsePractitionerType(entry.Type)
		if err != nil {
			return nil, errs.Wrapf(err, "practitioner %s", id)
		}
		managerID := strings.TrimSpace(entry.ManagerID)
		if managerID == id {
			return nil, fmt.Errorf("%w: practitioner %s manages themselves", domain.ErrValidation, id)
		}

		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		out = append(out, ports.Practitioner{
			ID:               id,
			Name:             strings.TrimSpace(entry.Name),
			Role:             role,
			Type:             pt,
			Department:       strings.TrimSpace(entry.Department),
			PrimarySpecialty: strings.TrimSpace(entry.PrimarySpecialty),
			Specialties:      entry.Specialties,
			ManagerID:        managerID,
			Active:           active,
		})
	}
	return out, nil
}

func convertPrivileges(entries []privilegeEntry) ([]ports.Privilege, error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]ports.Privilege, 0, len(entries))
	for i, entry := range entries {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: privileges[%d].id is required", domain.ErrValidation, i)
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: duplicate privilege %s", domain.ErrValidation, id)
		}
		seen[id] = struct{}{}

		required := strings.TrimSpace(entry.RequiredSpecialty)
		if required == "" && !entry.Core {
			return nil, fmt.Errorf("%w: privilege %s needs required_specialty unless core", domain.ErrValidation, id)
		}
		out = append(out, ports.Privilege{
			ID:                id,
			Name:              strings.TrimSpace(entry.Name),
			RequiredSpecialty: required,
			Core:              entry.Core,
		})
	}
	return out, nil
}
