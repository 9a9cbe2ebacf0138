package store

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrStale is returned when a result arrives for a capture that is no longer live.
var ErrStale = errors.New("capture is no longer live")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// MemoryDSN returns a DSN for a named in-memory database shared by every
// connection of this process. Nothing touches disk.
func MemoryDSN(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "plantscan"
	}
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(name))
}

// Open initializes the SQLite-backed database for the provided DSN.
func Open(dsn string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	// A shared-cache memory database disappears once its last connection
	// closes; keep exactly one open for the lifetime of the process.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(&Capture{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	logrus.WithField("dsn", dsn).Debug("capture store ready")
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ReplaceCapture drops whatever capture is live and stores c in its place.
func (d *Database) ReplaceCapture(c *Capture) error {
	if c == nil {
		return errors.New("capture is nil")
	}
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("capture id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Capture{}).Error; err != nil {
			return err
		}
		return tx.Create(c).Error
	})
}

// CurrentCapture returns the live capture or gorm.ErrRecordNotFound.
func (d *Database) CurrentCapture() (*Capture, error) {
	var c Capture
	if err := d.gorm.Order("created_at DESC").First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CompleteCapture records a successful identification for the capture id.
func (d *Database) CompleteCapture(id, responseJSON string, processingMs int64) error {
	now := time.Now().UTC()
	return d.finish(id, map[string]any{
		"status":             StatusReady,
		"error":              "",
		"response_json":      responseJSON,
		"processing_time_ms": processingMs,
		"finished_at":        &now,
	})
}

// FailCapture records a failed identification for the capture id.
func (d *Database) FailCapture(id, message string, processingMs int64) error {
	now := time.Now().UTC()
	return d.finish(id, map[string]any{
		"status":             StatusFailed,
		"error":              message,
		"response_json":      "",
		"processing_time_ms": processingMs,
		"finished_at":        &now,
	})
}

func (d *Database) finish(id string, updates map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.Model(&Capture{}).
		Where("id = ? AND status = ?", id, StatusLoading).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// ClearCaptures removes the live capture, if any, and reports how many rows
// were deleted.
func (d *Database) ClearCaptures() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Capture{})
	return res.RowsAffected, res.Error
}

// CountCaptures returns the number of stored captures.
func (d *Database) CountCaptures() (int64, error) {
	var count int64
	if err := d.gorm.Model(&Capture{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
