package seatmap

import (
	"time"

	"cineseat/internal/ledger"

	"github.com/google/uuid"
)

// Tier is the pricing tier of a seat class.
type Tier string

const (
	TierBase    Tier = "BASE"
	TierPremium Tier = "PREMIUM"
	TierVIP     Tier = "VIP"
)

// SeatStatus is the structural status carried on a seat record. Reservation
// state is the ledger's alone; clients overlay the live reserved set on top
// of the seat map rather than reading it from here.
type SeatStatus string

const (
	StatusAvailable SeatStatus = "available"
	StatusDeleted   SeatStatus = "deleted"
)

// SeatClassRule assigns a class, tier and price to a set of rows expressed
// as a compact row range ("A-C", "G,J").
type SeatClassRule struct {
	RowRange  string  `json:"row_range" binding:"required"`
	ClassName string  `json:"class_name" binding:"required"`
	Price     float64 `json:"price" binding:"min=0"`
	Tier      Tier    `json:"tier" binding:"required,oneof=BASE PREMIUM VIP"`
	Color     string  `json:"color"`
}

// LayoutConfig is the compact rule set a venue defines for a screen. The
// full seat grid is derived from it on every read.
type LayoutConfig struct {
	NumRows        int             `json:"num_rows" binding:"min=0"`
	NumCols        int             `json:"num_cols" binding:"min=0"`
	AisleColumns   []int           `json:"aisle_columns"`
	SeatClassRules []SeatClassRule `json:"seat_classes"`
}

// Seat is a derived entity: generated from LayoutConfig and merged with any
// persisted override. Identity is (RowLabel, Number).
type Seat struct {
	RowLabel  string     `json:"row_label"`
	Number    int        `json:"number"`
	X         int        `json:"x"`
	Y         int        `json:"y"`
	Price     float64    `json:"price"`
	Tier      Tier       `json:"tier"`
	ClassName string     `json:"class_name"`
	Color     string     `json:"color,omitempty"`
	IsActive  bool       `json:"is_active"`
	Status    SeatStatus `json:"status"`
}

// Key returns the stable identity of the seat.
func (s Seat) Key() ledger.SeatKey {
	return ledger.SeatKey{Row: s.RowLabel, Number: s.Number}
}

// SeatOverride mutates a generated seat. Nil fields are left untouched, so
// re-applying the same override is a no-op. Overrides can never invent a
// seat; soft-delete marks a seat inactive without removing the record.
type SeatOverride struct {
	X        *int        `json:"x,omitempty"`
	Y        *int        `json:"y,omitempty"`
	IsActive *bool       `json:"is_active,omitempty"`
	Status   *SeatStatus `json:"status,omitempty"`
	Tier     *Tier       `json:"tier,omitempty"`
}

// ScreenLayout is the persisted compact form of a screen's layout.
type ScreenLayout struct {
	ScreenID       string          `gorm:"primaryKey" json:"screen_id"`
	NumRows        int             `gorm:"not null" json:"num_rows"`
	NumCols        int             `gorm:"not null" json:"num_cols"`
	AisleColumns   []int           `gorm:"serializer:json" json:"aisle_columns"`
	SeatClassRules []SeatClassRule `gorm:"serializer:json" json:"seat_classes"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName sets the table name for ScreenLayout
func (ScreenLayout) TableName() string {
	return "screen_layouts"
}

// Config converts the persisted record back into a LayoutConfig.
func (l *ScreenLayout) Config() LayoutConfig {
	return LayoutConfig{
		NumRows:        l.NumRows,
		NumCols:        l.NumCols,
		AisleColumns:   l.AisleColumns,
		SeatClassRules: l.SeatClassRules,
	}
}

// SeatOverrideRecord persists one seat override, keyed by seat identity so
// upserts stay idempotent across layout regenerations.
type SeatOverrideRecord struct {
	ID         uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ScreenID   string      `gorm:"not null;uniqueIndex:idx_screen_seat" json:"screen_id"`
	RowLabel   string      `gorm:"not null;uniqueIndex:idx_screen_seat" json:"row_label"`
	SeatNumber int         `gorm:"not null;uniqueIndex:idx_screen_seat" json:"seat_number"`
	X          *int        `json:"x,omitempty"`
	Y          *int        `json:"y,omitempty"`
	IsActive   *bool       `json:"is_active,omitempty"`
	Status     *SeatStatus `gorm:"type:varchar(20)" json:"status,omitempty"`
	Tier       *Tier       `gorm:"type:varchar(20)" json:"tier,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TableName sets the table name for SeatOverrideRecord
func (SeatOverrideRecord) TableName() string {
	return "seat_overrides"
}

// Key returns the identity of the seat the override targets.
func (r *SeatOverrideRecord) Key() ledger.SeatKey {
	return ledger.SeatKey{Row: r.RowLabel, Number: r.SeatNumber}
}

// Override converts the record to its merge form.
func (r *SeatOverrideRecord) Override() SeatOverride {
	return SeatOverride{X: r.X, Y: r.Y, IsActive: r.IsActive, Status: r.Status, Tier: r.Tier}
}

// LayoutMeta is the meta section of the persisted layout document.
type LayoutMeta struct {
	Rows    int   `json:"rows"`
	Columns int   `json:"columns"`
	Aisles  []int `json:"aisles"`
}

// LayoutDocument is the client-facing shape of a screen's seat map: compact
// rules plus the expanded seat grid. It round-trips through Generate /
// ToSeatClassRules without loss.
type LayoutDocument struct {
	Meta        LayoutMeta      `json:"meta"`
	SeatClasses []SeatClassRule `json:"seatClasses"`
	Seats       []Seat          `json:"seats"`
}
