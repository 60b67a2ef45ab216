package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/internal/store"
)

// Repository persists tokens and agent records in SQL.
type Repository struct {
	DB *gorm.DB
}

var (
	_ store.TokenStore = (*Repository)(nil)
	_ store.AgentStore = (*Repository)(nil)
)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) LoadTokens(ctx context.Context) (map[string]string, error) {
	var rows []models.Token
	if err := r.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Secret
	}
	return out, nil
}

// SaveToken upserts the secret for name.
func (r *Repository) SaveToken(ctx context.Context, name, secret string) error {
	row := models.Token{Name: name, Secret: secret}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"secret", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (r *Repository) LoadAgents(ctx context.Context) ([]models.AgentRecord, error) {
	var rows []models.Agent
	if err := r.DB.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load agents: %w", err)
	}
	out := make([]models.AgentRecord, len(rows))
	for i, row := range rows {
		out[i] = row.ToRecord()
	}
	return out, nil
}

// SaveAgents upserts every record in one transaction.
func (r *Repository) SaveAgents(ctx context.Context, records []models.AgentRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]models.Agent, len(records))
	for i, rec := range records {
		rows[i] = rec.ToRow()
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token_name", "status", "metrics", "last_seen", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save agents: %w", err)
	}
	return nil
}
