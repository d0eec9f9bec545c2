package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"staychain/core/types"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// EventRecord is one sequenced protocol event as persisted in the archive.
// Attributes are stored as a JSON object keyed by attribute name.
type EventRecord struct {
	Sequence   uint64 `gorm:"primaryKey;autoIncrement:false"`
	Timestamp  uint64 `gorm:"index;not null"`
	Type       string `gorm:"index;size:128;not null"`
	Attributes string `gorm:"type:text"`
}

// ExportState tracks the parquet export watermark. A single row with ID 1 is
// maintained; LastSequence is the highest sequence already exported.
type ExportState struct {
	ID           uint32 `gorm:"primaryKey"`
	LastSequence uint64
}

// Store wraps the archive database.
type Store struct {
	db *gorm.DB
}

// OpenStore connects to the configured backend and migrates the schema.
func OpenStore(cfg DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if err := db.AutoMigrate(&EventRecord{}, &ExportState{}); err != nil {
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert persists one sequenced event. Replays of an already archived
// sequence are ignored so reconnects can safely overlap the stream.
func (s *Store) Insert(ctx context.Context, evt types.SequencedEvent) error {
	attrs, err := json.Marshal(evt.Event.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	record := EventRecord{
		Sequence:   evt.Sequence,
		Timestamp:  evt.Timestamp,
		Type:       evt.Event.Type,
		Attributes: string(attrs),
	}
	result := s.db.WithContext(ctx).
		Where(EventRecord{Sequence: evt.Sequence}).
		FirstOrCreate(&record)
	if result.Error != nil {
		return fmt.Errorf("insert event %d: %w", evt.Sequence, result.Error)
	}
	return nil
}

// LatestSequence returns the highest archived sequence, or zero when the
// archive is empty. It seeds the websocket cursor on startup.
func (s *Store) LatestSequence(ctx context.Context) (uint64, error) {
	var record EventRecord
	err := s.db.WithContext(ctx).Order("sequence DESC").First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("query latest sequence: %w", err)
	}
	return record.Sequence, nil
}

// EventsByType returns up to limit archived events of the given type,
// ordered by sequence.
func (s *Store) EventsByType(ctx context.Context, eventType string, limit int) ([]EventRecord, error) {
	var records []EventRecord
	query := s.db.WithContext(ctx).Order("sequence ASC")
	if eventType != "" {
		query = query.Where("type = ?", eventType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return records, nil
}

// ExportWatermark returns the highest sequence already written to parquet.
func (s *Store) ExportWatermark(ctx context.Context) (uint64, error) {
	var state ExportState
	err := s.db.WithContext(ctx).First(&state, uint32(1)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("query export state: %w", err)
	}
	return state.LastSequence, nil
}

// PendingExport returns up to limit archived events with a sequence above
// the export watermark, ordered by sequence.
func (s *Store) PendingExport(ctx context.Context, after uint64, limit int) ([]EventRecord, error) {
	var records []EventRecord
	query := s.db.WithContext(ctx).
		Where("sequence > ?", after).
		Order("sequence ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query pending export: %w", err)
	}
	return records, nil
}

// SetExportWatermark advances the export watermark.
func (s *Store) SetExportWatermark(ctx context.Context, sequence uint64) error {
	state := ExportState{ID: 1, LastSequence: sequence}
	if err := s.db.WithContext(ctx).Save(&state).Error; err != nil {
		return fmt.Errorf("update export state: %w", err)
	}
	return nil
}
