package service

import (
	"context"
	"database/sql"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/database"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/version"
)

// VersionInfo describes the running binary and its database schema.
type VersionInfo struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	SchemaVersion int64  `json:"schemaVersion"`
}

// SystemService handles system-related operations
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth(ctx context.Context) error {
	return database.HealthCheck(ctx, s.db)
}

// CheckVersion returns the build version and the applied schema migration.
func (s *SystemService) CheckVersion() (VersionInfo, error) {
	schema, err := database.SchemaVersion(s.db)
	if err != nil {
		return VersionInfo{}, err
	}
	return VersionInfo{
		Version:       version.Version,
		Commit:        version.Commit,
		SchemaVersion: schema,
	}, nil
}
