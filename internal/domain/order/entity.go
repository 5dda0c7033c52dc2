// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/cart"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusExpired   OrderStatus = "expired"
)

// Role classifies the acting identity. Back-office roles browse and test the
// catalog but never accrue a personal order.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleSeller   Role = "seller"
	RoleManager  Role = "manager"
)

// Actor is the identity performing an operation, as established by the
// external auth collaborator.
type Actor struct {
	UserID uint
	Role   Role
}

// IsPrivileged reports whether the actor is a back-office identity.
func (a Actor) IsPrivileged() bool {
	return a.Role == RoleStaff || a.Role == RoleSeller || a.Role == RoleManager
}

// Order is the persisted cart of an authenticated customer and, once paid,
// the record of the sale. At most one PENDING order exists per customer,
// enforced by a partial unique index.
type Order struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	CustomerID   uint        `gorm:"not null;index" json:"customer_id"`
	Status       OrderStatus `gorm:"not null;default:'pending';size:16" json:"status"`
	PriceDiff    bool        `gorm:"not null;default:false" json:"price_diff"`
	TrackingInfo string      `gorm:"size:128" json:"tracking_info,omitempty"`

	ItemsAmount    decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0" json:"items_amount"`
	DeliveryAmount decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"delivery_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0" json:"total_amount"`

	// Shipping snapshot, copied at checkout time rather than referenced live.
	Shipping ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`

	PaidAt      *time.Time `json:"paid_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	NotifiedAt  *time.Time `json:"notified_at"`
	ExpiredAt   *time.Time `json:"expired_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// OrderItem is one persisted product line of an order. Everything about the
// product is snapshotted so the order stays valid after catalog changes.
type OrderItem struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	OrderID            uint            `gorm:"not null;index" json:"order_id"`
	ProductIDSnapshot  uint            `gorm:"not null;index" json:"product_id_snapshot"`
	ProductName        string          `gorm:"not null;size:56" json:"product_name"`
	ProductDescription string          `gorm:"size:256" json:"product_description"`
	ProductImageURL    string          `gorm:"size:255" json:"product_image_url"`
	Quantity           int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice          decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0" json:"unit_price"`
	LineTotal          decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0" json:"line_total"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ShippingAddress holds the address fields copied onto an order at checkout.
type ShippingAddress struct {
	Email          string `gorm:"size:40" json:"email"`
	FirstName      string `gorm:"size:56" json:"first_name"`
	LastName       string `gorm:"size:56" json:"last_name"`
	Phone          string `gorm:"size:24" json:"phone"`
	Country        string `gorm:"size:56" json:"country"`
	City           string `gorm:"size:56" json:"city"`
	PostalCode     string `gorm:"size:16" json:"postal_code"`
	Street         string `gorm:"size:56" json:"street"`
	HouseNumber    string `gorm:"size:16" json:"house_number"`
	Apartment      string `gorm:"size:16" json:"apartment,omitempty"`
	AdditionalInfo string `gorm:"size:128" json:"additional_info,omitempty"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// IsTerminal reports whether the order can no longer change status, apart
// from the shipped-to-paid correction edge.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusExpired
}

// ItemByProduct returns the order's line for a product snapshot, or nil.
func (o *Order) ItemByProduct(productID uint) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ProductIDSnapshot == productID {
			return &o.Items[i]
		}
	}
	return nil
}

// AsCartItem exposes an order line in the uniform cart item shape.
func (i *OrderItem) AsCartItem() *cart.CartItem {
	return &cart.CartItem{
		ProductID:          i.ProductIDSnapshot,
		ProductName:        i.ProductName,
		ProductDescription: i.ProductDescription,
		ProductImageURL:    i.ProductImageURL,
		Quantity:           i.Quantity,
		UnitPrice:          i.UnitPrice,
		LineTotal:          i.LineTotal,
		AddedAt:            i.CreatedAt,
	}
}
