package service

import (
	"context"
	"database/sql"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/database"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db       *sql.DB
	features map[string]bool
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db:       db,
		features: map[string]bool{},
	}
}

// WithFeature marks an optional feature as enabled or disabled in version reports.
func (s *SystemService) WithFeature(name string, enabled bool) *SystemService {
	s.features[name] = enabled
	return s
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

func (s *SystemService) CheckVersion() string {
	return version.Version
}

// VersionInfo reports the application version, the applied schema version
// and which optional features are enabled.
func (s *SystemService) VersionInfo(ctx context.Context) (model.VersionInfo, error) {
	dbVersion, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return model.VersionInfo{}, err
	}

	features := make(map[string]bool, len(s.features))
	for k, v := range s.features {
		features[k] = v
	}
	return model.VersionInfo{
		AppVersion: version.Version,
		DbVersion:  dbVersion,
		Features:   features,
	}, nil
}
