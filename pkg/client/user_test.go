package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"oims/pkg/model"
)

func TestUserClient_Paths(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.RequestURI()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewUserClient(server.URL, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func() (*Response, error)
		wantMethod string
		wantPath   string
	}{
		{
			name:       "list users",
			call:       func() (*Response, error) { return c.GetUsers(ctx, nil) },
			wantMethod: http.MethodGet,
			wantPath:   "/users/users/",
		},
		{
			name:       "get by id",
			call:       func() (*Response, error) { return c.GetUserByID(ctx, 7) },
			wantMethod: http.MethodGet,
			wantPath:   "/users/users/7/",
		},
		{
			name:       "create",
			call:       func() (*Response, error) { return c.CreateUser(ctx, model.User{Username: "ada"}) },
			wantMethod: http.MethodPost,
			wantPath:   "/users/users/",
		},
		{
			name:       "update",
			call:       func() (*Response, error) { return c.UpdateUser(ctx, 7, model.User{Username: "ada"}) },
			wantMethod: http.MethodPut,
			wantPath:   "/users/users/7/",
		},
		{
			name:       "delete",
			call:       func() (*Response, error) { return c.DeleteUser(ctx, 7) },
			wantMethod: http.MethodDelete,
			wantPath:   "/users/users/7/",
		},
		{
			name:       "current user",
			call:       func() (*Response, error) { return c.GetMe(ctx) },
			wantMethod: http.MethodGet,
			wantPath:   "/users/users/me/",
		},
		{
			name:       "update current user",
			call:       func() (*Response, error) { return c.UpdateMe(ctx, model.User{Email: "a@b.c"}) },
			wantMethod: http.MethodPut,
			wantPath:   "/users/users/me/",
		},
		{
			name: "change password",
			call: func() (*Response, error) {
				return c.ChangePassword(ctx, ChangePasswordRequest{OldPassword: "x", NewPassword: "y"})
			},
			wantMethod: http.MethodPost,
			wantPath:   "/users/users/change_password/",
		},
		{
			name:       "lab users",
			call:       func() (*Response, error) { return c.GetLabUsers(ctx, "B2") },
			wantMethod: http.MethodGet,
			wantPath:   "/users/users/lab_users/?lab=B2",
		},
		{
			name:       "activity",
			call:       func() (*Response, error) { return c.GetUserActivity(ctx, 7) },
			wantMethod: http.MethodGet,
			wantPath:   "/users/users/7/activity/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.call(); err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if gotMethod != tt.wantMethod {
				t.Errorf("method = %s, want %s", gotMethod, tt.wantMethod)
			}
			if gotPath != tt.wantPath {
				t.Errorf("path = %s, want %s", gotPath, tt.wantPath)
			}
		})
	}
}

func TestUserClient_DecodePaginatedList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count": 2, "results": [{"id": 1, "username": "ada"}, {"id": 2, "username": "grace"}]}`))
	}))
	defer server.Close()

	c := NewUserClient(server.URL, nil)
	resp, err := c.GetUsers(context.Background(), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	users, err := c.DecodeUsers(resp)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(users) != 2 || users[0].Username != "ada" || users[1].ID != 2 {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestUserClient_ChangePasswordBody(t *testing.T) {
	var got ChangePasswordRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detail": "ok"}`))
	}))
	defer server.Close()

	c := NewUserClient(server.URL, nil)
	if _, err := c.ChangePassword(context.Background(), ChangePasswordRequest{
		OldPassword: "old-secret",
		NewPassword: "new-secret",
	}); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if got.OldPassword != "old-secret" || got.NewPassword != "new-secret" {
		t.Errorf("unexpected payload: %+v", got)
	}
}
