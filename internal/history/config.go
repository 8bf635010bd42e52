package history

import (
	"path/filepath"
	"time"

	"codeberg.org/mutker/printwatch/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/printwatch/history.db"
	defaultBatchSize    = 50
	defaultBatchTimeout = 30 * time.Second

	// maxBuffered bounds the entries kept while the database keeps failing.
	maxBuffered = 1000
)

type Config struct {
	DBPath       string
	BatchSize    int
	BatchTimeout time.Duration
	// BackupDir receives a copy of the database before a schema reset.
	// Empty means a "backups" directory next to DBPath.
	BackupDir string
	Enabled   bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Enabled:      false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if history is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithData(ErrInvalidConfig, "batch settings must not be negative")
	}
	return nil
}

func (c Config) backupDir() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}
