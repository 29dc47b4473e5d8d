package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// ValidOrderStatus reports whether s is one of the known order states.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodEsewa PaymentMethod = "esewa"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
)

// Customization is an inline made-to-order item. UnitPrice comes from the
// configurator, validated at the boundary.
type Customization struct {
	BaseModel string `json:"baseModel"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Engraving string `json:"engraving,omitempty"`
	UnitPrice int64  `json:"unitPrice"`
}

// OrderItem snapshots name, image and price at purchase time. Exactly one of
// ProductID or Customization is set.
type OrderItem struct {
	ProductID     *string        `json:"productId,omitempty"`
	Customization *Customization `json:"customization,omitempty"`
	Quantity      int            `json:"quantity"`
	UnitPrice     int64          `json:"unitPrice"`
	Name          string         `json:"name"`
	ImageURL      string         `json:"imageUrl,omitempty"`
}

type Review struct {
	Rating     int
	Text       string
	ReviewedAt time.Time
}

type Order struct {
	ID            string
	UserID        string
	Items         []OrderItem
	Total         int64
	Address       string
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Status        OrderStatus
	Review        *Review
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductIDs returns the distinct catalog products referenced by the order.
func (o Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	var out []string
	for _, item := range o.Items {
		if item.ProductID == nil {
			continue
		}
		if _, ok := seen[*item.ProductID]; ok {
			continue
		}
		seen[*item.ProductID] = struct{}{}
		out = append(out, *item.ProductID)
	}
	return out
}
