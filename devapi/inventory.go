package devapi

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/stockflow/core"
	"github.com/shopspring/decimal"
)

// Inventory is the in-memory data set served by the development API
type Inventory struct {
	mu             sync.RWMutex
	products       map[string]core.Product
	purchaseOrders []core.PurchaseOrder
	orders         []core.Order
	vendors        []core.Vendor
	organizations  []core.Organization
	alerts         []core.Alert
	now            func() time.Time
}

// NewInventory creates an inventory seeded with the demo data of the web application
func NewInventory(now func() time.Time) *Inventory {
	if now == nil {
		now = time.Now
	}
	created := now().UTC()

	inv := &Inventory{
		products: map[string]core.Product{},
		now:      now,
	}

	for _, p := range []core.Product{
		{ID: "p-elec-001", Name: "Wireless Mouse", SKU: "ELEC-001", Category: "Electronics", UnitPrice: decimal.RequireFromString("29.99"), CostPrice: decimal.RequireFromString("15.00"), Quantity: 5, ReorderPoint: 10, Status: core.ProductLowStock},
		{ID: "p-elec-002", Name: "USB-C Hub", SKU: "ELEC-002", Category: "Electronics", UnitPrice: decimal.RequireFromString("49.99"), CostPrice: decimal.RequireFromString("25.00"), Quantity: 45, ReorderPoint: 15, Status: core.ProductActive},
		{ID: "p-food-001", Name: "Organic Coffee Beans", SKU: "FOOD-001", Category: "Food & Beverage", UnitPrice: decimal.RequireFromString("24.99"), CostPrice: decimal.RequireFromString("12.00"), Quantity: 30, ReorderPoint: 20, Status: core.ProductActive},
	} {
		p.CreatedDate = created
		inv.products[p.ID] = p
	}

	inv.vendors = []core.Vendor{
		{ID: "v-1", Name: "Downtown Store", Email: "downtown@stockflow.com", StoreName: "Downtown", City: "San Francisco", Country: "USA", Latitude: 37.7749, Longitude: -122.4194, Balance: decimal.RequireFromString("1250.00"), CommissionRate: decimal.RequireFromString("0.05"), Status: "active", OrganizationID: "org-1", CreatedDate: created},
	}
	inv.organizations = []core.Organization{
		{ID: "org-1", Name: "StockFlow HQ", Code: "SF-HQ", City: "San Francisco", Country: "USA", Status: "active", SubscriptionPlan: "pro", MaxVendors: 25, Currency: "USD", CreatedDate: created},
	}
	inv.alerts = []core.Alert{
		{ID: "a-1", Type: "low_stock", Priority: "high", Title: "Low Stock Alert", Message: "Wireless Mouse is running low on stock (5 units remaining)", ProductID: "p-elec-001", ActionURL: "/inventory", CreatedDate: created},
		{ID: "a-2", Type: "expiring", Priority: "medium", Title: "Product Expiring Soon", Message: "Organic Coffee Beans will expire in 7 days", ProductID: "p-food-001", CreatedDate: created.Add(-24 * time.Hour)},
	}

	return inv
}

// Products returns the products matching the optional category, status and search term
func (inv *Inventory) Products(category, status, search string) []core.Product {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	search = strings.ToLower(search)
	out := make([]core.Product, 0, len(inv.products))
	for _, p := range inv.products {
		if category != "" && p.Category != category {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// Product returns a product by ID
func (inv *Inventory) Product(id string) (core.Product, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	p, ok := inv.products[id]
	if !ok {
		return core.Product{}, core.ErrNotFound
	}
	return p, nil
}

func (inv *Inventory) PurchaseOrders(status string) []core.PurchaseOrder {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]core.PurchaseOrder, 0, len(inv.purchaseOrders))
	for _, po := range inv.purchaseOrders {
		if status == "" || po.Status == status {
			out = append(out, po)
		}
	}
	return out
}

// AddPurchaseOrder stores a new purchase order in draft state
func (inv *Inventory) AddPurchaseOrder(po core.PurchaseOrder) (core.PurchaseOrder, error) {
	if len(po.Items) == 0 {
		return core.PurchaseOrder{}, fmt.Errorf("purchase order has no items")
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	po.ID = uuid.New().String()
	po.PONumber = fmt.Sprintf("PO-%d-%03d", inv.now().Year(), len(inv.purchaseOrders)+1)
	po.Status = "draft"
	po.TotalAmount = po.ComputeTotal()
	po.CreatedDate = inv.now().UTC()
	inv.purchaseOrders = append(inv.purchaseOrders, po)

	return po, nil
}

// AddOrder stores a client order and reserves the ordered stock
func (inv *Inventory) AddOrder(order core.Order) (core.Order, error) {
	if order.ClientName == "" || len(order.Items) == 0 {
		return core.Order{}, fmt.Errorf("order needs a client and at least one item")
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	total := decimal.Zero
	for _, item := range order.Items {
		p, ok := inv.products[item.ProductID]
		if !ok {
			return core.Order{}, fmt.Errorf("%w: product %s", core.ErrNotFound, item.ProductID)
		}
		if p.Quantity < item.Quantity {
			return core.Order{}, fmt.Errorf("insufficient stock for %s", p.SKU)
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	for _, item := range order.Items {
		p := inv.products[item.ProductID]
		p.Quantity -= item.Quantity
		switch {
		case p.Quantity == 0:
			p.Status = core.ProductOutOfStock
		case p.NeedsReorder():
			p.Status = core.ProductLowStock
		}
		inv.products[p.ID] = p
	}

	order.ID = uuid.New().String()
	order.OrderNumber = fmt.Sprintf("ORD-%d-%03d", inv.now().Year(), len(inv.orders)+1)
	order.Total = total
	order.Status = "pending"
	order.PaymentStatus = "unpaid"
	order.CreatedDate = inv.now().UTC()
	inv.orders = append(inv.orders, order)

	return order, nil
}

func (inv *Inventory) Vendors() []core.Vendor {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return append([]core.Vendor(nil), inv.vendors...)
}

func (inv *Inventory) Organizations() []core.Organization {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return append([]core.Organization(nil), inv.organizations...)
}

func (inv *Inventory) Alerts() []core.Alert {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return append([]core.Alert(nil), inv.alerts...)
}

// MarkAlertRead flags an alert as read
func (inv *Inventory) MarkAlertRead(id string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for i := range inv.alerts {
		if inv.alerts[i].ID == id {
			inv.alerts[i].IsRead = true
			return nil
		}
	}
	return core.ErrNotFound
}
