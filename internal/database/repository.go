package database

import (
	"github.com/uptrace/bun"
	"github.com/wardenlabs/warden/internal/database/models"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	reputation *models.ReputationModel
	warning    *models.WarningModel
	ban        *models.BanModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		reputation: models.NewReputation(db, logger),
		warning:    models.NewWarning(db, logger),
		ban:        models.NewBan(db, logger),
	}
}

// Reputation returns the reputation model repository.
func (r *Repository) Reputation() *models.ReputationModel {
	return r.reputation
}

// Warning returns the warning model repository.
func (r *Repository) Warning() *models.WarningModel {
	return r.warning
}

// Ban returns the ban model repository.
func (r *Repository) Ban() *models.BanModel {
	return r.ban
}
