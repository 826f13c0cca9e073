// Package gormstore persists tidy tables into SQLite so repeated backfills
// are incremental instead of re-downloading history.
package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"backfill/internal/request"
	"backfill/internal/tidy"
)

const saveBatchSize = 500

// Observation is one (timestamp, ticker) row of the canonical table.
// Columns are nullable so sparse streams keep their gaps.
type Observation struct {
	Timestamp   int64    `gorm:"column:timestamp;primaryKey;autoIncrement:false"`
	Ticker      string   `gorm:"column:ticker;primaryKey"`
	Open        *float64 `gorm:"column:open"`
	High        *float64 `gorm:"column:high"`
	Low         *float64 `gorm:"column:low"`
	Close       *float64 `gorm:"column:close"`
	Volume      *float64 `gorm:"column:volume"`
	FundingRate *float64 `gorm:"column:funding_rate"`
	OI          *float64 `gorm:"column:oi"`
}

func (Observation) TableName() string { return "observations" }

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Observation{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: keep the pool small so writers don't contend.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// SaveTable upserts every row of the table; re-running a window overwrites
// the existing observations instead of duplicating them.
func (s *Store) SaveTable(ctx context.Context, table *tidy.Table) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	if table == nil || len(table.Rows) == 0 {
		return nil
	}
	models := make([]Observation, 0, len(table.Rows))
	for _, row := range table.Rows {
		obs := Observation{Timestamp: row.Timestamp.UnixMilli(), Ticker: row.Ticker}
		for field, value := range row.Values {
			switch field {
			case request.FieldOpen:
				obs.Open = value
			case request.FieldHigh:
				obs.High = value
			case request.FieldLow:
				obs.Low = value
			case request.FieldClose:
				obs.Close = value
			case request.FieldVolume:
				obs.Volume = value
			case request.FieldFundingRate:
				obs.FundingRate = value
			case request.FieldOI:
				obs.OI = value
			}
		}
		models = append(models, obs)
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "timestamp"}, {Name: "ticker"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"open", "high", "low", "close", "volume", "funding_rate", "oi",
			}),
		}).
		CreateInBatches(models, saveBatchSize).Error
}

// LoadRange reads observations for one ticker inside a closed millisecond
// window, ordered by timestamp.
func (s *Store) LoadRange(ctx context.Context, ticker string, start, end int64) ([]Observation, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	var out []Observation
	err := s.db.WithContext(ctx).
		Where("ticker = ? AND timestamp >= ? AND timestamp <= ?", ticker, start, end).
		Order("timestamp ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

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

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
