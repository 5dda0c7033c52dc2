// internal/domain/pricing/entity.go
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliverySettings is a singleton row: orders below FreeThreshold pay
// FlatPrice for delivery, everything at or above it ships free.
type DeliverySettings struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	FreeThreshold decimal.Decimal `gorm:"type:numeric(5,2);not null;default:50.00" json:"free_threshold"`
	FlatPrice     decimal.Decimal `gorm:"type:numeric(5,2);not null;default:8.50" json:"flat_price"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (DeliverySettings) TableName() string { return "delivery_settings" }

// SettingsSource yields the current delivery settings.
type SettingsSource interface {
	DeliverySettings() (*DeliverySettings, error)
}

// GormSettings loads the singleton settings row, creating it from configured
// defaults on first use.
type GormSettings struct {
	db       *gorm.DB
	defaults DeliverySettings
}

// NewGormSettings creates the database-backed settings source.
func NewGormSettings(db *gorm.DB, freeThreshold, flatPrice decimal.Decimal) *GormSettings {
	return &GormSettings{
		db: db,
		defaults: DeliverySettings{
			ID:            1,
			FreeThreshold: freeThreshold,
			FlatPrice:     flatPrice,
		},
	}
}

func (s *GormSettings) DeliverySettings() (*DeliverySettings, error) {
	settings := s.defaults
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Where(DeliverySettings{ID: 1}).
		FirstOrCreate(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to load delivery settings: %w", err)
	}
	return &settings, nil
}

// StaticSettings is a fixed in-memory settings source.
type StaticSettings struct {
	Settings DeliverySettings
}

// NewStaticSettings returns a settings source pinned to the given values.
func NewStaticSettings(freeThreshold, flatPrice decimal.Decimal) *StaticSettings {
	return &StaticSettings{Settings: DeliverySettings{ID: 1, FreeThreshold: freeThreshold, FlatPrice: flatPrice}}
}

func (s *StaticSettings) DeliverySettings() (*DeliverySettings, error) {
	settings := s.Settings
	return &settings, nil
}
