package client

import (
	"context"
	"fmt"
	"net/url"
	"oims/pkg/model"
)

type UserClient struct {
	httpClient *HttpClient
}

func NewUserClient(baseURL string, tokens TokenSource) *UserClient {
	return &UserClient{
		httpClient: NewHttpClient(baseURL).WithTokens(tokens),
	}
}

func (c *UserClient) GetUsers(ctx context.Context, params url.Values) (*Response, error) {
	path := "/users/users/"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.httpClient.GET(ctx, path)
}

func (c *UserClient) GetUserByID(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/users/users/%d/", id))
}

func (c *UserClient) CreateUser(ctx context.Context, u model.User) (*Response, error) {
	return c.httpClient.POST(ctx, "/users/users/", u)
}

func (c *UserClient) UpdateUser(ctx context.Context, id int, u model.User) (*Response, error) {
	return c.httpClient.PUT(ctx, fmt.Sprintf("/users/users/%d/", id), u)
}

func (c *UserClient) DeleteUser(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.DELETE(ctx, fmt.Sprintf("/users/users/%d/", id))
}

func (c *UserClient) GetMe(ctx context.Context) (*Response, error) {
	return c.httpClient.GET(ctx, "/users/users/me/")
}

func (c *UserClient) UpdateMe(ctx context.Context, u model.User) (*Response, error) {
	return c.httpClient.PUT(ctx, "/users/users/me/", u)
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (c *UserClient) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/users/users/change_password/", req)
}

// GetLabUsers lists the users assigned to a lab, e.g. for the booking
// form's participant picker.
func (c *UserClient) GetLabUsers(ctx context.Context, labCode string) (*Response, error) {
	q := url.Values{}
	q.Set("lab", labCode)
	return c.httpClient.GET(ctx, "/users/users/lab_users/?"+q.Encode())
}

func (c *UserClient) GetUserActivity(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/users/users/%d/activity/", id))
}

func (c *UserClient) DecodeUser(resp *Response) (*model.User, error) {
	return DecodeObject[model.User](resp)
}

func (c *UserClient) DecodeUsers(resp *Response) ([]model.User, error) {
	return DecodeList[model.User](resp)
}

func (c *UserClient) DecodeActivity(resp *Response) ([]model.UserActivity, error) {
	return DecodeList[model.UserActivity](resp)
}
