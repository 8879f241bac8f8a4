package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// List is the envelope the API uses for collection endpoints
type List[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total,omitempty"`
}

// User is the authenticated user as returned by /auth/me. Its JSON form is
// what gets cached under the current user marker.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name,omitempty"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	UserType       string `json:"user_type,omitempty"`
	Status         string `json:"status,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// Product status values
const (
	ProductActive       = "active"
	ProductLowStock     = "low_stock"
	ProductOutOfStock   = "out_of_stock"
	ProductDiscontinued = "discontinued"
)

// Product is an inventory item
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Category        string          `json:"category"`
	Description     string          `json:"description,omitempty"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	Quantity        int             `json:"quantity"`
	ReorderPoint    int             `json:"reorder_point,omitempty"`
	ReorderQuantity int             `json:"reorder_quantity,omitempty"`
	SupplierID      string          `json:"supplier_id,omitempty"`
	Status          string          `json:"status"`
	ExpiryDate      string          `json:"expiry_date,omitempty"`
	CreatedDate     time.Time       `json:"created_date"`
}

// NeedsReorder reports whether the quantity fell to or below the reorder point
func (p Product) NeedsReorder() bool {
	return p.ReorderPoint > 0 && p.Quantity <= p.ReorderPoint
}

// POItem is a line of a purchase order
type POItem struct {
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SKU              string          `json:"sku,omitempty"`
	Quantity         int             `json:"quantity"`
	QuantityReceived int             `json:"quantity_received,omitempty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// PurchaseOrder is an order placed with a supplier
type PurchaseOrder struct {
	ID           string          `json:"id"`
	PONumber     string          `json:"po_number"`
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Status       string          `json:"status"`
	Items        []POItem        `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ExpectedDate string          `json:"expected_date,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedDate  time.Time       `json:"created_date"`
}

// ComputeTotal sums quantity * unit price over all items
func (po PurchaseOrder) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range po.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// OrderItem is a line of a client order
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Order is a client order
type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	ClientName    string          `json:"client_name"`
	ClientEmail   string          `json:"client_email,omitempty"`
	Items         []OrderItem     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	CreatedDate   time.Time       `json:"created_date"`
}

// Vendor is a store operating under an organization
type Vendor struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone,omitempty"`
	StoreName      string          `json:"store_name,omitempty"`
	City           string          `json:"city,omitempty"`
	Country        string          `json:"country,omitempty"`
	Latitude       float64         `json:"latitude,omitempty"`
	Longitude      float64         `json:"longitude,omitempty"`
	Balance        decimal.Decimal `json:"balance"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Status         string          `json:"status"`
	OrganizationID string          `json:"organization_id,omitempty"`
	CreatedDate    time.Time       `json:"created_date"`
}

// Organization groups vendors and users
type Organization struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Code             string    `json:"code,omitempty"`
	City             string    `json:"city,omitempty"`
	Country          string    `json:"country,omitempty"`
	Status           string    `json:"status"`
	SubscriptionPlan string    `json:"subscription_plan,omitempty"`
	MaxVendors       int       `json:"max_vendors,omitempty"`
	Currency         string    `json:"currency"`
	CreatedDate      time.Time `json:"created_date"`
}

// Alert is a notification raised by the inventory system
type Alert struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Priority    string    `json:"priority"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ProductID   string    `json:"product_id,omitempty"`
	POID        string    `json:"po_id,omitempty"`
	IsRead      bool      `json:"is_read"`
	IsDismissed bool      `json:"is_dismissed"`
	ActionURL   string    `json:"action_url,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}
