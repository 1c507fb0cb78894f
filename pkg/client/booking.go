package client

import (
	"context"
	"fmt"
	"net/url"
	"oims/pkg/model"
)

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string, tokens TokenSource) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL).WithTokens(tokens),
	}
}

func (c *BookingClient) GetAll(ctx context.Context, params url.Values) (*Response, error) {
	path := "/bookings/"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.httpClient.GET(ctx, path)
}

func (c *BookingClient) GetByID(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/bookings/%d/", id))
}

func (c *BookingClient) Cancel(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.DELETE(ctx, fmt.Sprintf("/bookings/%d/", id))
}

func (c *BookingClient) Approve(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.POST(ctx, fmt.Sprintf("/bookings/%d/approve/", id), struct{}{})
}

func (c *BookingClient) Reject(ctx context.Context, id int, reason string) (*Response, error) {
	body := map[string]string{"reason": reason}
	return c.httpClient.POST(ctx, fmt.Sprintf("/bookings/%d/reject/", id), body)
}

func (c *BookingClient) GetWorkspaces(ctx context.Context) (*Response, error) {
	return c.httpClient.GET(ctx, "/bookings/workspaces/")
}

func (c *BookingClient) GetMyBookings(ctx context.Context) (*Response, error) {
	return c.httpClient.GET(ctx, "/bookings/my_bookings/")
}

func (c *BookingClient) GetCalendarEvents(ctx context.Context, start, end string) (*Response, error) {
	q := url.Values{}
	q.Set("start", start)
	q.Set("end", end)
	return c.httpClient.GET(ctx, "/bookings/calendar/?"+q.Encode())
}

// CheckAvailability asks the backend whether a resource is free for a time
// window. Timestamps are ISO-8601 local time without an offset; the backend
// operates in the same local time reference as its callers.
func (c *BookingClient) CheckAvailability(ctx context.Context, resourceType model.ResourceType, resourceID int, startTime, endTime string) (*Response, error) {
	q := url.Values{}
	q.Set("resource_type", string(resourceType))
	q.Set("resource_id", fmt.Sprintf("%d", resourceID))
	q.Set("start_time", startTime)
	q.Set("end_time", endTime)
	return c.httpClient.GET(ctx, "/bookings/availability/?"+q.Encode())
}

func (c *BookingClient) SearchSlots(ctx context.Context, req model.SlotRequest) (*Response, error) {
	q := url.Values{}
	q.Set("date", req.Date)
	q.Set("start_time", req.StartTime)
	q.Set("end_time", req.EndTime)
	return c.httpClient.GET(ctx, "/bookings/slots/?"+q.Encode())
}

func (c *BookingClient) CreateSlot(ctx context.Context, req model.SlotRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/bookings/slots/", req)
}

// FindOrCreateSlot looks a slot up by its exact (date, start, end) triple
// and creates it when absent. The lookup and create are separate round
// trips; a concurrent caller can create the same window in between, so
// treat this as at-least-once rather than atomic.
func (c *BookingClient) FindOrCreateSlot(ctx context.Context, req model.SlotRequest) (*model.Slot, error) {
	resp, err := c.SearchSlots(ctx, req)
	if err != nil {
		return nil, err
	}
	existing, err := DecodeList[model.Slot](resp)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	resp, err = c.CreateSlot(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodeObject[model.Slot](resp)
}

func (c *BookingClient) CreateEquipmentBooking(ctx context.Context, req model.EquipmentBookingRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/bookings/equipment-bookings/", req)
}

func (c *BookingClient) UpdateEquipmentBooking(ctx context.Context, id int, req model.EquipmentBookingRequest) (*Response, error) {
	return c.httpClient.PUT(ctx, fmt.Sprintf("/bookings/equipment-bookings/%d/", id), req)
}

func (c *BookingClient) CreateWorkspaceBooking(ctx context.Context, req model.WorkspaceBookingRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/bookings/workspace-bookings/", req)
}

func (c *BookingClient) UpdateWorkspaceBooking(ctx context.Context, id int, req model.WorkspaceBookingRequest) (*Response, error) {
	return c.httpClient.PUT(ctx, fmt.Sprintf("/bookings/workspace-bookings/%d/", id), req)
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	return DecodeObject[model.Booking](resp)
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]model.Booking, error) {
	return DecodeList[model.Booking](resp)
}

func (c *BookingClient) DecodeWorkspaces(resp *Response) ([]model.Workspace, error) {
	return DecodeList[model.Workspace](resp)
}

func (c *BookingClient) DecodeAvailability(resp *Response) (*model.AvailabilityResponse, error) {
	return DecodeObject[model.AvailabilityResponse](resp)
}
