package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/layer-3/stockflow/core"
)

// Resources exposes the typed inventory endpoints used by the views.
// Every call goes through Client, so session expiry is handled transparently.
type Resources struct {
	client *Client
}

// NewResources creates typed accessors on top of client
func NewResources(client *Client) *Resources {
	return &Resources{client: client}
}

// ProductFilter narrows ListProducts
type ProductFilter struct {
	Category string
	Status   string
	Search   string
}

func (f ProductFilter) query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// ListProducts returns the products matching filter
func (r *Resources) ListProducts(ctx context.Context, filter ProductFilter) ([]core.Product, error) {
	req := core.NewRequest(http.MethodGet, "/products", nil).WithQuery(filter.query())
	return doList[core.Product](ctx, r.client, req)
}

// GetProduct fetches a single product
func (r *Resources) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	req := core.NewRequest(http.MethodGet, "/products/"+url.PathEscape(id), nil)
	return doOne[core.Product](ctx, r.client, req)
}

// ListPurchaseOrders returns the purchase orders, optionally narrowed to a status
func (r *Resources) ListPurchaseOrders(ctx context.Context, status string) ([]core.PurchaseOrder, error) {
	req := core.NewRequest(http.MethodGet, "/purchase-orders", nil)
	if status != "" {
		req = req.WithQuery(url.Values{"status": {status}})
	}
	return doList[core.PurchaseOrder](ctx, r.client, req)
}

// CreatePurchaseOrder submits po. The total is computed from the items when unset.
func (r *Resources) CreatePurchaseOrder(ctx context.Context, po core.PurchaseOrder) (*core.PurchaseOrder, error) {
	if po.TotalAmount.IsZero() {
		po.TotalAmount = po.ComputeTotal()
	}

	req, err := core.NewJSONRequest(http.MethodPost, "/purchase-orders", po)
	if err != nil {
		return nil, err
	}
	return doOne[core.PurchaseOrder](ctx, r.client, req)
}

// CreateOrder places a client order
func (r *Resources) CreateOrder(ctx context.Context, order core.Order) (*core.Order, error) {
	req, err := core.NewJSONRequest(http.MethodPost, "/orders", order)
	if err != nil {
		return nil, err
	}
	return doOne[core.Order](ctx, r.client, req)
}

// ListVendors returns every vendor
func (r *Resources) ListVendors(ctx context.Context) ([]core.Vendor, error) {
	return doList[core.Vendor](ctx, r.client, core.NewRequest(http.MethodGet, "/vendors", nil))
}

// ListOrganizations returns every organization
func (r *Resources) ListOrganizations(ctx context.Context) ([]core.Organization, error) {
	return doList[core.Organization](ctx, r.client, core.NewRequest(http.MethodGet, "/organizations", nil))
}

// ListAlerts returns the alerts; dismissed ones are dropped unless includeDismissed is set
func (r *Resources) ListAlerts(ctx context.Context, includeDismissed bool) ([]core.Alert, error) {
	alerts, err := doList[core.Alert](ctx, r.client, core.NewRequest(http.MethodGet, "/alerts", nil))
	if err != nil || includeDismissed {
		return alerts, err
	}

	visible := alerts[:0]
	for _, alert := range alerts {
		if !alert.IsDismissed {
			visible = append(visible, alert)
		}
	}
	return visible, nil
}

// MarkAlertRead flags an alert as read
func (r *Resources) MarkAlertRead(ctx context.Context, id string) error {
	req := core.NewRequest(http.MethodPost, "/alerts/"+url.PathEscape(id)+"/read", nil)
	_, err := r.client.Do(ctx, req)
	return err
}

func doList[T any](ctx context.Context, client *Client, req core.Request) ([]T, error) {
	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var list core.List[T]
	if err := resp.Decode(&list); err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return list.Items, nil
}

func doOne[T any](ctx context.Context, client *Client, req core.Request) (*T, error) {
	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var v T
	if err := resp.Decode(&v); err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return &v, nil
}
