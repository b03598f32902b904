package seatmap

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLayoutNotFound is returned when a screen has no stored layout.
var ErrLayoutNotFound = errors.New("screen layout not found")

// Repository defines the persistence contract for screen layouts and seat
// overrides.
type Repository interface {
	GetLayout(ctx context.Context, screenID string) (*ScreenLayout, error)
	SaveLayout(ctx context.Context, layout *ScreenLayout) error
	GetOverrides(ctx context.Context, screenID string) ([]SeatOverrideRecord, error)
	UpsertOverrides(ctx context.Context, records []SeatOverrideRecord) error
	DeleteOverrides(ctx context.Context, screenID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new seatmap repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetLayout(ctx context.Context, screenID string) (*ScreenLayout, error) {
	var layout ScreenLayout
	err := r.db.WithContext(ctx).First(&layout, "screen_id = ?", screenID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLayoutNotFound
		}
		return nil, fmt.Errorf("failed to get screen layout: %w", err)
	}
	return &layout, nil
}

func (r *repository) SaveLayout(ctx context.Context, layout *ScreenLayout) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "screen_id"}},
		UpdateAll: true,
	}).Create(layout).Error
	if err != nil {
		return fmt.Errorf("failed to save screen layout: %w", err)
	}
	return nil
}

func (r *repository) GetOverrides(ctx context.Context, screenID string) ([]SeatOverrideRecord, error) {
	var records []SeatOverrideRecord
	err := r.db.WithContext(ctx).
		Where("screen_id = ?", screenID).
		Order("row_label, seat_number").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get seat overrides: %w", err)
	}
	return records, nil
}

func (r *repository) UpsertOverrides(ctx context.Context, records []SeatOverrideRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "screen_id"}, {Name: "row_label"}, {Name: "seat_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"x", "y", "is_active", "status", "tier", "updated_at"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("failed to upsert seat overrides: %w", err)
	}
	return nil
}

func (r *repository) DeleteOverrides(ctx context.Context, screenID string) error {
	err := r.db.WithContext(ctx).
		Where("screen_id = ?", screenID).
		Delete(&SeatOverrideRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete seat overrides: %w", err)
	}
	return nil
}
