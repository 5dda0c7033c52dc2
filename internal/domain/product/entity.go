// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a catalog product. The catalog subsystem owns every
// field except Quantity, which is mutated exclusively through the stock
// ledger (row lock on reserve, atomic increment on release).
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CategoryID  *uint           `gorm:"index" json:"category_id"`
	Name        string          `gorm:"uniqueIndex;not null;size:56" json:"name"`
	Description string          `gorm:"size:256" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0" json:"price"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
	ImageURL    string          `gorm:"size:255" json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Category groups products for the catalog read surface.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:56" json:"name"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (Category) TableName() string { return "categories" }

// InStock reports whether at least qty units are available.
func (p *Product) InStock(qty int) bool {
	return p.Quantity >= qty
}
