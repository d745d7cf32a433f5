// Package store persists strategy definitions in SQLite via gorm.
// Conditions are stored as the author's raw text; the engine recompiles
// them on load.
package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/strategy"
)

// Record is the persisted form of a strategy. Condition lines are
// newline-joined.
type Record struct {
	ID               string `gorm:"primaryKey"`
	Name             string
	Type             string
	Symbol           string
	Timeframe        string
	StopLossPct      float64
	TakeProfitPct    float64
	RiskPct          float64
	MaxPositions     int
	ForceCloseOnStop bool
	EntryConditions  string
	ExitConditions   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Record) TableName() string { return "strategies" }

// FromStrategy captures the persistable parts of a strategy.
func FromStrategy(s *strategy.Strategy) Record {
	return Record{
		ID:               s.ID,
		Name:             s.Name,
		Type:             string(s.Type),
		Symbol:           s.Params.Symbol,
		Timeframe:        string(s.Params.Timeframe),
		StopLossPct:      s.Params.StopLossPct,
		TakeProfitPct:    s.Params.TakeProfitPct,
		RiskPct:          s.Params.RiskPct,
		MaxPositions:     s.Params.MaxPositions,
		ForceCloseOnStop: s.Params.ForceCloseOnStop,
		EntryConditions:  strings.Join(s.EntryText, "\n"),
		ExitConditions:   strings.Join(s.ExitText, "\n"),
	}
}

// Strategy rebuilds the record into an uncompiled strategy: Entry and
// Exit are left nil for the caller to compile.
func (r Record) Strategy() *strategy.Strategy {
	return &strategy.Strategy{
		ID:   r.ID,
		Name: r.Name,
		Type: strategy.Type(r.Type),
		Params: strategy.Params{
			Symbol:           r.Symbol,
			Timeframe:        market.Timeframe(r.Timeframe),
			StopLossPct:      r.StopLossPct,
			TakeProfitPct:    r.TakeProfitPct,
			RiskPct:          r.RiskPct,
			MaxPositions:     r.MaxPositions,
			ForceCloseOnStop: r.ForceCloseOnStop,
		},
		EntryText: splitLines(r.EntryConditions),
		ExitText:  splitLines(r.ExitConditions),
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Open opens (or creates) the strategy database and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return db, nil
}

type StrategyRepo interface {
	Save(ctx context.Context, rec Record) error
	FindAll(ctx context.Context) ([]Record, error)
	FindByID(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
}

type strategyRepo struct {
	db *gorm.DB
}

func NewStrategyRepo(db *gorm.DB) StrategyRepo {
	return &strategyRepo{db: db}
}

// Save inserts or updates by primary key.
func (repo *strategyRepo) Save(ctx context.Context, rec Record) error {
	return repo.db.WithContext(ctx).Save(&rec).Error
}

func (repo *strategyRepo) FindAll(ctx context.Context) ([]Record, error) {
	var recs []Record
	err := repo.db.WithContext(ctx).Order("created_at").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (repo *strategyRepo) FindByID(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (repo *strategyRepo) Delete(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Where("id = ?", id).Delete(&Record{}).Error
}
