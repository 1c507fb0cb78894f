package client

import (
	"context"
	"fmt"
	"net/url"
	"oims/pkg/model"
)

type InventoryClient struct {
	httpClient *HttpClient
}

func NewInventoryClient(baseURL string, tokens TokenSource) *InventoryClient {
	return &InventoryClient{
		httpClient: NewHttpClient(baseURL).WithTokens(tokens),
	}
}

func (c *InventoryClient) GetEquipment(ctx context.Context, filter model.EquipmentFilter) (*Response, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Category != 0 {
		q.Set("category", fmt.Sprintf("%d", filter.Category))
	}
	if filter.Lab != "" {
		q.Set("lab", filter.Lab)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}

	path := "/inventory/equipment/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.httpClient.GET(ctx, path)
}

func (c *InventoryClient) GetEquipmentByID(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/inventory/equipment/%d/", id))
}

func (c *InventoryClient) CreateEquipment(ctx context.Context, eq model.Equipment) (*Response, error) {
	return c.httpClient.POST(ctx, "/inventory/equipment/", eq)
}

func (c *InventoryClient) UpdateEquipment(ctx context.Context, id int, eq model.Equipment) (*Response, error) {
	return c.httpClient.PUT(ctx, fmt.Sprintf("/inventory/equipment/%d/", id), eq)
}

func (c *InventoryClient) DeleteEquipment(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.DELETE(ctx, fmt.Sprintf("/inventory/equipment/%d/", id))
}

func (c *InventoryClient) CheckoutEquipment(ctx context.Context, id int, body any) (*Response, error) {
	return c.httpClient.POST(ctx, fmt.Sprintf("/inventory/equipment/%d/checkout/", id), body)
}

func (c *InventoryClient) CheckinEquipment(ctx context.Context, id int, body any) (*Response, error) {
	return c.httpClient.POST(ctx, fmt.Sprintf("/inventory/equipment/%d/checkin/", id), body)
}

func (c *InventoryClient) ScheduleMaintenance(ctx context.Context, id int, body any) (*Response, error) {
	return c.httpClient.POST(ctx, fmt.Sprintf("/inventory/equipment/%d/schedule_maintenance/", id), body)
}

func (c *InventoryClient) CompleteMaintenance(ctx context.Context, id int, body any) (*Response, error) {
	return c.httpClient.POST(ctx, fmt.Sprintf("/inventory/equipment/%d/complete_maintenance/", id), body)
}

func (c *InventoryClient) GetCategories(ctx context.Context) (*Response, error) {
	return c.httpClient.GET(ctx, "/inventory/categories/")
}

func (c *InventoryClient) CreateCategory(ctx context.Context, cat model.Category) (*Response, error) {
	return c.httpClient.POST(ctx, "/inventory/categories/", cat)
}

func (c *InventoryClient) UpdateCategory(ctx context.Context, id int, cat model.Category) (*Response, error) {
	return c.httpClient.PUT(ctx, fmt.Sprintf("/inventory/categories/%d/", id), cat)
}

func (c *InventoryClient) DeleteCategory(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.DELETE(ctx, fmt.Sprintf("/inventory/categories/%d/", id))
}

func (c *InventoryClient) GetMaintenanceRecords(ctx context.Context, params url.Values) (*Response, error) {
	path := "/inventory/maintenance/"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.httpClient.GET(ctx, path)
}

func (c *InventoryClient) DecodeEquipment(resp *Response) (*model.Equipment, error) {
	return DecodeObject[model.Equipment](resp)
}

func (c *InventoryClient) DecodeEquipmentList(resp *Response) ([]model.Equipment, error) {
	return DecodeList[model.Equipment](resp)
}

func (c *InventoryClient) DecodeCategories(resp *Response) ([]model.Category, error) {
	return DecodeList[model.Category](resp)
}

func (c *InventoryClient) DecodeMaintenanceRecords(resp *Response) ([]model.MaintenanceRecord, error) {
	return DecodeList[model.MaintenanceRecord](resp)
}
