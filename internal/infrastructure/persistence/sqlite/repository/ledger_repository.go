package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"privflow/internal/domain/privileging"
	"privflow/internal/errs"
	"privflow/internal/infrastructure/persistence/sqlite/model"
	"privflow/internal/ports"
)

type LedgerRepository struct {
	db *gorm.DB
}

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) CreateRequest(ctx context.Context, req ports.Request) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.Request{
		RequestID:   req.ID,
		RequesterID: req.RequesterID,
		Kind:        string(req.Kind),
		Status:      string(req.Status),
		CreatedAt:   req.CreatedAt,
		UpdatedAt:   req.UpdatedAt,
		SubmittedAt: req.SubmittedAt,
		CompletedAt: req.CompletedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert request")
	}
	return nil
}

func (r *LedgerRepository) GetRequest(ctx context.Context, id string) (ports.Request, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Request{}, err
	}

	var row model.Request
	if err := db.Where("request_id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Request{}, ports.ErrRequestNotFound
		}
		return ports.Request{}, errs.Wrap(err, "query request")
	}
	return mapRequest(row), nil
}

func (r *LedgerRepository) ListRequests(ctx context.Context, filter ports.RequestFilter) ([]ports.Request, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Request{})
	if requester := strings.TrimSpace(filter.RequesterID); requester != "" {
		query = query.Where("requester_id = ?", requester)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}

	var rows []model.Request
	if err := query.Order("created_at asc, request_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query requests")
	}

	items := make([]ports.Request, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapRequest(row))
	}
	return items, nil
}

func (r *LedgerRepository) UpdateRequestStatus(ctx context.Context, write ports.RequestStatusWrite) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"status":     string(write.To),
		"updated_at": write.UpdatedAt,
	}
	if write.SubmittedAt != nil {
		updates["submitted_at"] = *write.SubmittedAt
	}
	if write.CompletedAt != nil {
		updates["completed_at"] = *write.CompletedAt
	} else if write.ClearCompletedAt {
		updates["completed_at"] = nil
	}

	result := db.Model(&model.Request{}).
		Where("request_id = ? AND status = ?", write.RequestID, string(write.From)).
		Updates(updates)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "update request status")
	}
	return result.RowsAffected == 1, nil
}

func (r *LedgerRepository) AddPrivilegeLine(ctx context.Context, line ports.PrivilegeLine) (ports.PrivilegeLine, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.PrivilegeLine{}, err
	}

	decision := line.Decision
	if decision == "" {
		decision = privileging.LineUndecided
	}
	row := model.PrivilegeLine{
		RequestID:   line.RequestID,
		PrivilegeID: line.PrivilegeID,
		Decision:    string(decision),
		Comment:     line.Comment,
		DecidedBy:   line.DecidedBy,
		CreatedAt:   line.CreatedAt,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_id"}, {Name: "privilege_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return ports.PrivilegeLine{}, errs.Wrap(result.Error, "insert privilege line")
	}
	if result.RowsAffected == 0 {
		return ports.PrivilegeLine{}, ports.ErrDuplicateLine
	}
	return mapLine(row), nil
}

func (r *LedgerRepository) RemovePrivilegeLine(ctx context.Context, requestID string, privilegeID string) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	result := db.Where("request_id = ? AND privilege_id = ?", requestID, privilegeID).Delete(&model.PrivilegeLine{})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "delete privilege line")
	}
	return result.RowsAffected > 0, nil
}

func (r *LedgerRepository) ListPrivilegeLines(ctx context.Context, requestID string) ([]ports.PrivilegeLine, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.PrivilegeLine
	if err := db.Where("request_id = ?", requestID).Order("line_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query privilege lines")
	}

	items := make([]ports.PrivilegeLine, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapLine(row))
	}
	return items, nil
}

func (r *LedgerRepository) SetLineDecision(ctx context.Context, write ports.LineDecisionWrite) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"decision": string(write.Decision),
		"comment":  write.Comment,
	}
	if write.DecidedBy != "" {
		updates["decided_by"] = write.DecidedBy
	}
	result := db.Model(&model.PrivilegeLine{}).
		Where("request_id = ? AND line_id = ?", write.RequestID, write.LineID).
		Updates(updates)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "update line decision")
	}
	return result.RowsAffected == 1, nil
}

func (r *LedgerRepository) ResetLineDecisions(ctx context.Context, requestID string) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	if err := db.Model(&model.PrivilegeLine{}).
		Where("request_id = ?", requestID).
		Updates(map[string]any{
			"decision":   string(privileging.LineUndecided),
			"comment":    "",
			"decided_by": nil,
		}).Error; err != nil {
		return errs.Wrap(err, "reset line decisions")
	}
	return nil
}

func (r *LedgerRepository) CreateApprovalRecords(ctx context.Context, records []ports.ApprovalRecordCreate) ([]ports.ApprovalRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	created := make([]ports.ApprovalRecord, 0, len(records))
	err := inTx(ctx, r.db, func(txCtx context.Context) error {
		db, err := dbFromContext(txCtx, r.db)
		if err != nil {
			return err
		}

		for _, rec := range records {
			row := model.ApprovalRecord{
				RequestID:  rec.RequestID,
				Level:      int(rec.Level),
				ReviewerID: rec.ReviewerID,
				Status:     string(privileging.RecordPending),
				CreatedAt:  rec.CreatedAt,
			}
			if err := db.Create(&row).Error; err != nil {
				return errs.Wrapf(err, "insert approval record %s", rec.Level)
			}
			created = append(created, mapApprovalRecord(row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *LedgerRepository) ListApprovalRecords(ctx context.Context, requestID string) ([]ports.ApprovalRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.ApprovalRecord
	if err := db.Where("request_id = ?", requestID).Order("level asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query approval records")
	}

	items := make([]ports.ApprovalRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapApprovalRecord(row))
	}
	return items, nil
}

func (r *LedgerRepository) DecideApprovalRecord(ctx context.Context, write ports.ApprovalDecisionWrite) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"status":  string(write.Status),
		"comment": write.Comment,
		"version": gorm.Expr("version + 1"),
	}
	if write.Status != privileging.RecordPending {
		updates["decided_at"] = write.DecidedAt
	}

	result := db.Model(&model.ApprovalRecord{}).
		Where("record_id = ? AND status = ? AND version = ?", write.RecordID, string(privileging.RecordPending), write.ExpectedVersion).
		Updates(updates)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "update approval record")
	}
	return result.RowsAffected == 1, nil
}

func (r *LedgerRepository) DeleteLedger(ctx context.Context, requestID string) error {
	return inTx(ctx, r.db, func(txCtx context.Context) error {
		db, err := dbFromContext(txCtx, r.db)
		if err != nil {
			return err
		}
		if err := db.Where("request_id = ?", requestID).Delete(&model.EscalationRecord{}).Error; err != nil {
			return errs.Wrap(err, "delete escalation records")
		}
		if err := db.Where("request_id = ?", requestID).Delete(&model.ApprovalRecord{}).Error; err != nil {
			return errs.Wrap(err, "delete approval records")
		}
		return nil
	})
}

func (r *LedgerRepository) OpenEscalation(ctx context.Context, input ports.EscalationCreate) (ports.EscalationRecord, error) {
	var opened ports.EscalationRecord
	err := inTx(ctx, r.db, func(txCtx context.Context) error {
		db, err := dbFromContext(txCtx, r.db)
		if err != nil {
			return err
		}

		var open int64
		if err := db.Model(&model.EscalationRecord{}).
			Where("request_id = ? AND closed_at IS NULL", input.RequestID).
			Count(&open).Error; err != nil {
			return errs.Wrap(err, "count open escalation records")
		}
		if open > 0 {
			return errs.Wrapf(privileging.ErrInvalidState, "request %s already has an open escalation record", input.RequestID)
		}

		row := model.EscalationRecord{
			RequestID:        input.RequestID,
			ApprovalRecordID: input.ApprovalRecordID,
			ReceivedAt:       input.ReceivedAt,
		}
		if err := db.Create(&row).Error; err != nil {
			return errs.Wrap(err, "insert escalation record")
		}
		opened = mapEscalation(row)
		return nil
	})
	if err != nil {
		return ports.EscalationRecord{}, err
	}
	return opened, nil
}

func (r *LedgerRepository) CloseOpenEscalations(ctx context.Context, requestID string, closedAt string) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	result := db.Model(&model.EscalationRecord{}).
		Where("request_id = ? AND closed_at IS NULL", requestID).
		Updates(map[string]any{
			"closed_at": closedAt,
			"version":   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "close escalation records")
	}
	return result.RowsAffected, nil
}

func (r *LedgerRepository) GetOpenEscalation(ctx context.Context, requestID string) (ports.EscalationRecord, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.EscalationRecord{}, false, err
	}

	var rows []model.EscalationRecord
	if err := db.Where("request_id = ? AND closed_at IS NULL", requestID).
		Order("escalation_id desc").
		Limit(1).
		Find(&rows).Error; err != nil {
		return ports.EscalationRecord{}, false, errs.Wrap(err, "query open escalation record")
	}
	if len(rows) == 0 {
		return ports.EscalationRecord{}, false, nil
	}
	return mapEscalation(rows[0]), true, nil
}

func (r *LedgerRepository) GetEscalation(ctx context.Context, escalationID uint64) (ports.EscalationRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.EscalationRecord{}, err
	}

	var row model.EscalationRecord
	if err := db.Where("escalation_id = ?", escalationID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.EscalationRecord{}, ports.ErrEscalationNotFound
		}
		return ports.EscalationRecord{}, errs.Wrap(err, "query escalation record")
	}
	return mapEscalation(row), nil
}

func (r *LedgerRepository) ListOpenEscalations(ctx context.Context) ([]ports.EscalationRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.EscalationRecord
	if err := db.Where("closed_at IS NULL").Order("escalation_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query open escalation records")
	}

	items := make([]ports.EscalationRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapEscalation(row))
	}
	return items, nil
}

func (r *LedgerRepository) UpdateEscalation(ctx context.Context, update ports.EscalationUpdate) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.EscalationRecord{}).
		Where("escalation_id = ? AND closed_at IS NULL AND version = ?", update.EscalationID, update.ExpectedVersion).
		Updates(map[string]any{
			"level":   update.Level,
			"warned":  update.Warned,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "update escalation record")
	}
	return result.RowsAffected == 1, nil
}

func (r *LedgerRepository) AppendEvent(ctx context.Context, input ports.RequestEventCreate) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.RequestEvent{
		RequestID: input.RequestID,
		Actor:     input.Actor,
		Kind:      input.Kind,
		Body:      input.Body,
		CreatedAt: input.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert request event")
	}
	return nil
}

func (r *LedgerRepository) ListEvents(ctx context.Context, requestID string) ([]ports.RequestEvent, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.RequestEvent
	if err := db.Where("request_id = ?", requestID).Order("event_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query request events")
	}

	items := make([]ports.RequestEvent, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.RequestEvent{
			EventID:   row.EventID,
			RequestID: row.RequestID,
			Actor:     row.Actor,
			Kind:      row.Kind,
			Body:      row.Body,
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func mapRequest(row model.Request) ports.Request {
	return ports.Request{
		ID:          row.RequestID,
		RequesterID: row.RequesterID,
		Kind:        privileging.RequestKind(row.Kind),
		Status:      privileging.RequestStatus(row.Status),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		SubmittedAt: row.SubmittedAt,
		CompletedAt: row.CompletedAt,
	}
}

func mapLine(row model.PrivilegeLine) ports.PrivilegeLine {
	return ports.PrivilegeLine{
		LineID:      row.LineID,
		RequestID:   row.RequestID,
		PrivilegeID: row.PrivilegeID,
		Decision:    privileging.LineDecision(row.Decision),
		Comment:     row.Comment,
		DecidedBy:   row.DecidedBy,
		CreatedAt:   row.CreatedAt,
	}
}

func mapApprovalRecord(row model.ApprovalRecord) ports.ApprovalRecord {
	return ports.ApprovalRecord{
		RecordID:   row.RecordID,
		RequestID:  row.RequestID,
		Level:      privileging.ReviewLevel(row.Level),
		ReviewerID: row.ReviewerID,
		Status:     privileging.RecordStatus(row.Status),
		Comment:    row.Comment,
		DecidedAt:  row.DecidedAt,
		CreatedAt:  row.CreatedAt,
		Version:    row.Version,
	}
}

func mapEscalation(row model.EscalationRecord) ports.EscalationRecord {
	return ports.EscalationRecord{
		EscalationID:     row.EscalationID,
		RequestID:        row.RequestID,
		ApprovalRecordID: row.ApprovalRecordID,
		ReceivedAt:       row.ReceivedAt,
		Level:            row.Level,
		Warned:           row.Warned,
		ClosedAt:         row.ClosedAt,
		Version:          row.Version,
	}
}
