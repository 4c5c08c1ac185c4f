package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type AuditRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewAuditRepository(sqlDB *sql.DB, logger zerolog.Logger) *AuditRepository {
	return &AuditRepository{db: sqlDB, logger: logger}
}

func (r *AuditRepository) WithTx(tx *sql.Tx) *AuditRepository {
	return &AuditRepository{db: tx, logger: r.logger}
}

func (r *AuditRepository) Insert(ctx context.Context, entry *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (action, entity_type, entity_id, old_value, new_value, user_info)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Action, entry.EntityType, entry.EntityID, entry.OldValue, entry.NewValue, entry.UserInfo)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, entity_type, entity_id, old_value, new_value, user_info, created_at
		 FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditLog{}
	for rows.Next() {
		var e domain.AuditLog
		var entityID sql.NullInt64
		var oldValue, newValue, userInfo sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &entityID, &oldValue, &newValue, &userInfo, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if entityID.Valid {
			e.EntityID = &entityID.Int64
		}
		if oldValue.Valid {
			e.OldValue = &oldValue.String
		}
		if newValue.Valid {
			e.NewValue = &newValue.String
		}
		if userInfo.Valid {
			e.UserInfo = &userInfo.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
