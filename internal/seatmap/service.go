package seatmap

import (
	"context"
	"fmt"
	"time"

	"cineseat/internal/ledger"
	"cineseat/pkg/cache"
	"cineseat/pkg/logger"

	"github.com/google/uuid"
)

const (
	cacheKeySeatMap = "cineseat:seatmap:"
)

// Service assembles seat maps for screens: stored compact rules expanded
// into the full grid with persisted overrides merged on top.
type Service interface {
	GetSeatMap(ctx context.Context, screenID string) (*LayoutDocument, error)
	SaveLayout(ctx context.Context, screenID string, config LayoutConfig) (*LayoutDocument, []string, error)
	UpsertOverrides(ctx context.Context, screenID string, overrides map[string]SeatOverride) (*LayoutDocument, error)
	ResetOverrides(ctx context.Context, screenID string) (*LayoutDocument, error)

	// PriceFor resolves current per-seat prices for a seat list; used by
	// the booking coordinator to re-validate client pricing.
	PriceFor(ctx context.Context, screenID string, seats []ledger.SeatKey) (map[ledger.SeatKey]float64, error)
}

type service struct {
	repo     Repository
	cache    cache.Service
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewService creates a new seatmap service
func NewService(repo Repository, cacheSvc cache.Service, cacheTTL time.Duration, log *logger.Logger) Service {
	return &service{
		repo:     repo,
		cache:    cacheSvc,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// GetSeatMap returns the assembled seat map for a screen.
func (s *service) GetSeatMap(ctx context.Context, screenID string) (*LayoutDocument, error) {
	cacheKey := cacheKeySeatMap + screenID

	var cached LayoutDocument
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	doc, err := s.assemble(ctx, screenID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, doc, s.cacheTTL); err != nil {
		s.log.WithError(err).Warn("failed to cache seat map", "screen_id", screenID)
	}
	return doc, nil
}

// assemble loads rules and overrides and derives the full grid.
func (s *service) assemble(ctx context.Context, screenID string) (*LayoutDocument, error) {
	layout, err := s.repo.GetLayout(ctx, screenID)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.GetOverrides(ctx, screenID)
	if err != nil {
		return nil, err
	}

	overrides := make(map[ledger.SeatKey]SeatOverride, len(records))
	for _, rec := range records {
		overrides[rec.Key()] = rec.Override()
	}

	config := layout.Config()
	seats := ApplyOverrides(Generate(config), overrides)

	return &LayoutDocument{
		Meta: LayoutMeta{
			Rows:    config.NumRows,
			Columns: config.NumCols,
			Aisles:  config.AisleColumns,
		},
		SeatClasses: config.SeatClassRules,
		Seats:       seats,
	}, nil
}

// SaveLayout validates and persists a new rule set for a screen. Overrides
// survive the change: they are keyed by seat identity and re-merged on the
// next read.
func (s *service) SaveLayout(ctx context.Context, screenID string, config LayoutConfig) (*LayoutDocument, []string, error) {
	warnings, err := ValidateConfig(config)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		s.log.Warn("layout configuration warning", "screen_id", screenID, "warning", w)
	}

	layout := &ScreenLayout{
		ScreenID:       screenID,
		NumRows:        config.NumRows,
		NumCols:        config.NumCols,
		AisleColumns:   config.AisleColumns,
		SeatClassRules: config.SeatClassRules,
	}
	if err := s.repo.SaveLayout(ctx, layout); err != nil {
		return nil, nil, err
	}

	s.invalidate(ctx, screenID)

	doc, err := s.assemble(ctx, screenID)
	if err != nil {
		return nil, nil, err
	}
	return doc, warnings, nil
}

// UpsertOverrides stores per-seat edits keyed by seat identity. Overrides
// naming seats outside the generated grid are dropped with a warning; the
// grid alone decides which seats exist.
func (s *service) UpsertOverrides(ctx context.Context, screenID string, overrides map[string]SeatOverride) (*LayoutDocument, error) {
	layout, err := s.repo.GetLayout(ctx, screenID)
	if err != nil {
		return nil, err
	}

	valid := make(map[ledger.SeatKey]bool)
	for _, seat := range Generate(layout.Config()) {
		valid[seat.Key()] = true
	}

	records := make([]SeatOverrideRecord, 0, len(overrides))
	for keyStr, ov := range overrides {
		key, err := ledger.ParseSeatKey(keyStr)
		if err != nil {
			return nil, fmt.Errorf("invalid seat key %q: %w", keyStr, err)
		}
		if !valid[key] {
			s.log.Warn("ignoring override for nonexistent seat", "screen_id", screenID, "seat", keyStr)
			continue
		}
		records = append(records, SeatOverrideRecord{
			ID:         uuid.New(),
			ScreenID:   screenID,
			RowLabel:   key.Row,
			SeatNumber: key.Number,
			X:          ov.X,
			Y:          ov.Y,
			IsActive:   ov.IsActive,
			Status:     ov.Status,
			Tier:       ov.Tier,
		})
	}

	if err := s.repo.UpsertOverrides(ctx, records); err != nil {
		return nil, err
	}

	s.invalidate(ctx, screenID)
	return s.assemble(ctx, screenID)
}

// ResetOverrides drops every stored override for a screen, restoring the
// pure generated grid.
func (s *service) ResetOverrides(ctx context.Context, screenID string) (*LayoutDocument, error) {
	if _, err := s.repo.GetLayout(ctx, screenID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteOverrides(ctx, screenID); err != nil {
		return nil, err
	}

	s.invalidate(ctx, screenID)
	return s.assemble(ctx, screenID)
}

// PriceFor returns the current price of each requested seat.
func (s *service) PriceFor(ctx context.Context, screenID string, seats []ledger.SeatKey) (map[ledger.SeatKey]float64, error) {
	doc, err := s.GetSeatMap(ctx, screenID)
	if err != nil {
		return nil, err
	}

	byKey := make(map[ledger.SeatKey]Seat, len(doc.Seats))
	for _, seat := range doc.Seats {
		byKey[seat.Key()] = seat
	}

	prices := make(map[ledger.SeatKey]float64, len(seats))
	for _, key := range seats {
		seat, ok := byKey[key]
		if !ok || !seat.IsActive {
			return nil, fmt.Errorf("seat %s does not exist or is inactive", key)
		}
		prices[key] = seat.Price
	}
	return prices, nil
}

func (s *service) invalidate(ctx context.Context, screenID string) {
	if err := s.cache.Delete(ctx, cacheKeySeatMap+screenID); err != nil {
		s.log.WithError(err).Warn("failed to invalidate seat map cache", "screen_id", screenID)
	}
}
