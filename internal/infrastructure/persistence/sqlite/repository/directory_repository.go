package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"privflow/internal/domain/privileging"
	"privflow/internal/errs"
	"privflow/internal/infrastructure/persistence/sqlite/model"
	"privflow/internal/ports"
)

// DirectoryRepository serves the organization directory from the local
// practitioners table, populated by `directory import`.
type DirectoryRepository struct {
	db *gorm.DB
}

var (
	_ ports.OrganizationDirectory = (*DirectoryRepository)(nil)
	_ ports.DirectoryWriter       = (*DirectoryRepository)(nil)
)

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetPractitioner(ctx context.Context, id string) (ports.Practitioner, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Practitioner{}, err
	}

	var row model.Practitioner
	if err := db.Where("practitioner_id = ?", strings.TrimSpace(id)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Practitioner{}, ports.ErrPractitionerNotFound
		}
		return ports.Practitioner{}, errs.Wrap(err, "query practitioner")
	}
	return r.hydrate(db, row)
}

func (r *DirectoryRepository) GetManager(ctx context.Context, id string) (ports.Practitioner, bool, error) {
	p, err := r.GetPractitioner(ctx, id)
	if err != nil {
		return ports.Practitioner{}, false, err
	}
	if strings.TrimSpace(p.ManagerID) == "" || p.ManagerID == p.ID {
		return ports.Practitioner{}, false, nil
	}

	manager, err := r.GetPractitioner(ctx, p.ManagerID)
	if err != nil {
		if errors.Is(err, ports.ErrPractitionerNotFound) {
			return ports.Practitioner{}, false, nil
		}
		return ports.Practitioner{}, false, err
	}
	return manager, true, nil
}

func (r *DirectoryRepository) FindReviewer(ctx context.Context, level privileging.ReviewLevel, scope ports.ReviewerScope) (ports.Practitioner, bool, error) {
	role, ok := privileging.RoleForLevel(level)
	if !ok {
		return ports.Practitioner{}, false, fmt.Errorf("%w: %s", privileging.ErrUnknownReviewLevel, level)
	}

	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Practitioner{}, false, err
	}

	query := db.Where("role = ? AND active = ?", string(role), true)
	if level == privileging.LevelDepartmentHead {
		query = query.Where("department = ?", scope.Department)
	}
	if len(scope.ExcludeIDs) > 0 {
		query = query.Where("practitioner_id NOT IN ?", scope.ExcludeIDs)
	}

	var rows []model.Practitioner
	if err := query.Order("practitioner_id asc").Limit(1).Find(&rows).Error; err != nil {
		return ports.Practitioner{}, false, errs.Wrapf(err, "query reviewer for %s", level)
	}
	if len(rows) == 0 {
		return ports.Practitioner{}, false, nil
	}

	p, err := r.hydrate(db, rows[0])
	if err != nil {
		return ports.Practitioner{}, false, err
	}
	return p, true, nil
}

func (r *DirectoryRepository) GetPrivileges(ctx context.Context, ids []string) ([]ports.Privilege, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Privilege
	if err := db.Where("privilege_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query privileges")
	}

	byID := make(map[string]model.Privilege, len(rows))
	for _, row := range rows {
		byID[row.PrivilegeID] = row
	}

	// Preserve the caller's order so results line up with request lines.
	items := make([]ports.Privilege, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ports.ErrPrivilegeNotFound, id)
		}
		items = append(items, ports.Privilege{
			ID:                row.PrivilegeID,
			Name:              row.Name,
			RequiredSpecialty: row.RequiredSpecialty,
			Core:              row.IsCore,
		})
	}
	return items, nil
}

func (r *DirectoryRepository) UpsertPractitioner(ctx context.Context, p ports.Practitioner) error {
	return inTx(ctx, r.db, func(txCtx context.Context) error {
		db, err := dbFromContext(txCtx, r.db)
		if err != nil {
			return err
		}

		row := model.Practitioner{
			PractitionerID:   p.ID,
			Name:             p.Name,
			Role:             string(p.Role),
			PractitionerType: string(p.Type),
			Department:       p.Department,
			PrimarySpecialty: p.PrimarySpecialty,
			ManagerID:        p.ManagerID,
			Active:           p.Active,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "practitioner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "role", "practitioner_type", "department", "primary_specialty", "manager_id", "active",
			}),
		}).Create(&row).Error; err != nil {
			return errs.Wrap(err, "upsert practitioner")
		}

		if err := db.Where("practitioner_id = ?", p.ID).Delete(&model.PractitionerSpecialty{}).Error; err != nil {
			return errs.Wrap(err, "delete practitioner specialties")
		}
		if len(p.Specialties) == 0 {
			return nil
		}

		specialties := make([]model.PractitionerSpecialty, 0, len(p.Specialties))
		for _, s := range p.Specialties {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			specialties = append(specialties, model.PractitionerSpecialty{PractitionerID: p.ID, Specialty: s})
		}
		if len(specialties) == 0 {
			return nil
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&specialties).Error; err != nil {
			return errs.Wrap(err, "insert practitioner specialties")
		}
		return nil
	})
}

func (r *DirectoryRepository) UpsertPrivilege(ctx context.Context, p ports.Privilege) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.Privilege{
		PrivilegeID:       p.ID,
		Name:              p.Name,
		RequiredSpecialty: p.RequiredSpecialty,
		IsCore:            p.Core,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "privilege_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "required_specialty", "is_core"}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert privilege")
	}
	return nil
}

func (r *DirectoryRepository) hydrate(db *gorm.DB, row model.Practitioner) (ports.Practitioner, error) {
	var specialties []model.PractitionerSpecialty
	if err := db.Where("practitioner_id = ?", row.PractitionerID).
		Order("specialty asc").
		Find(&specialties).Error; err != nil {
		return ports.Practitioner{}, errs.Wrap(err, "query practitioner specialties")
	}

	extra := make([]string, 0, len(specialties))
	for _, s := range specialties {
		extra = append(extra, s.Specialty)
	}

	// An unmapped role is an error here, never a silent non-reviewer.
	role, err := privileging.ParseRole(row.Role)
	if err != nil {
		return ports.Practitioner{}, errs.Wrapf(err, "practitioner %s", row.PractitionerID)
	}

	return ports.Practitioner{
		ID:               row.PractitionerID,
		Name:             row.Name,
		Role:             role,
		Type:             privileging.PractitionerType(row.PractitionerType),
		Department:       row.Department,
		PrimarySpecialty: row.PrimarySpecialty,
		Specialties:      extra,
		ManagerID:        row.ManagerID,
		Active:           row.Active,
	}, nil
}
