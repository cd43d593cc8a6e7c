// Package database keeps the download history in SQLite, so completed files are not fetched again.
package database

import (
	"embed"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"moul.io/zapgorm2"

	"github.com/alanbriolat/video-harvester/internal/session"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type HistoryRecord struct {
	ID          int64 `gorm:"primaryKey"`
	URL         string
	Title       string
	OutputPath  string
	FormatID    string
	Quality     string
	SizeBytes   int64
	CompletedAt time.Time
}

func (HistoryRecord) TableName() string {
	return "download_history"
}

type Database struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewDatabase opens (creating if necessary) the SQLite database at path. Call Migrate before use.
func NewDatabase(path string) (*Database, error) {
	log := zap.L().Named("database")
	gormLogger := zapgorm2.New(log)
	gormLogger.IgnoreRecordNotFoundError = true
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}
	return &Database{db: db, log: log.Sugar()}, nil
}

func (d *Database) Migrate() error {
	d.log.Info("running database migrations")
	fs, err := iofs.New(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", fs, "sqlite3", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	switch {
	case err == nil:
		d.log.Info("database migration complete")
	case errors.Is(err, migrate.ErrNoChange):
		d.log.Info("no database migration required")
	default:
		return err
	}
	return nil
}

func (d *Database) Close() {
	if sqlDB, err := d.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Record implements session.History, replacing any earlier record for the same output path.
func (d *Database) Record(entry session.HistoryEntry) error {
	record := HistoryRecord{
		URL:         entry.URL,
		Title:       entry.Title,
		OutputPath:  entry.OutputPath,
		FormatID:    entry.FormatID,
		Quality:     entry.Quality,
		SizeBytes:   entry.SizeBytes,
		CompletedAt: entry.CompletedAt,
	}
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "output_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "title", "format_id", "quality", "size_bytes", "completed_at"}),
	}).Create(&record).Error
}

// Completed implements session.History.
func (d *Database) Completed(outputPath string) (bool, error) {
	var count int64
	err := d.db.Model(&HistoryRecord{}).Where("output_path = ?", outputPath).Count(&count).Error
	return count > 0, err
}

// Recent returns up to limit records, newest first.
func (d *Database) Recent(limit int) ([]HistoryRecord, error) {
	var records []HistoryRecord
	err := d.db.Order("completed_at DESC").Order("id DESC").Limit(limit).Find(&records).Error
	return records, err
}

// ForURL returns every record for a source URL, newest first.
func (d *Database) ForURL(url string) ([]HistoryRecord, error) {
	var records []HistoryRecord
	err := d.db.Where("url = ?", url).Order("completed_at DESC").Find(&records).Error
	return records, err
}
