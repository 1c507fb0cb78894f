package client

import (
	"context"
	"fmt"
	"net/url"
	"oims/pkg/model"
)

type ProjectClient struct {
	httpClient *HttpClient
}

func NewProjectClient(baseURL string, tokens TokenSource) *ProjectClient {
	return &ProjectClient{
		httpClient: NewHttpClient(baseURL).WithTokens(tokens),
	}
}

func (c *ProjectClient) GetProjects(ctx context.Context, filter model.ProjectFilter) (*Response, error) {
	q := url.Values{}
	if filter.UserID != 0 {
		q.Set("user_id", fmt.Sprintf("%d", filter.UserID))
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}

	path := "/projects/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.httpClient.GET(ctx, path)
}

func (c *ProjectClient) GetProjectByID(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/projects/%d/", id))
}

func (c *ProjectClient) CreateProject(ctx context.Context, p model.Project) (*Response, error) {
	return c.httpClient.POST(ctx, "/projects/", p)
}

func (c *ProjectClient) UpdateProject(ctx context.Context, id int, p model.Project) (*Response, error) {
	return c.httpClient.PUT(ctx, fmt.Sprintf("/projects/%d/", id), p)
}

func (c *ProjectClient) DeleteProject(ctx context.Context, id int) (*Response, error) {
	return c.httpClient.DELETE(ctx, fmt.Sprintf("/projects/%d/", id))
}

func (c *ProjectClient) GetMembers(ctx context.Context, projectID int) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/projects/%d/members/", projectID))
}

func (c *ProjectClient) AddMember(ctx context.Context, projectID int, body any) (*Response, error) {
	return c.httpClient.POST(ctx, fmt.Sprintf("/projects/%d/members/", projectID), body)
}

func (c *ProjectClient) RemoveMember(ctx context.Context, projectID, memberID int) (*Response, error) {
	return c.httpClient.DELETE(ctx, fmt.Sprintf("/projects/%d/members/%d/", projectID, memberID))
}

func (c *ProjectClient) GetDocuments(ctx context.Context, projectID int) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("/projects/%d/documents/", projectID))
}

func (c *ProjectClient) DeleteDocument(ctx context.Context, projectID, documentID int) (*Response, error) {
	return c.httpClient.DELETE(ctx, fmt.Sprintf("/projects/%d/documents/%d/", projectID, documentID))
}

func (c *ProjectClient) DecodeProject(resp *Response) (*model.Project, error) {
	return DecodeObject[model.Project](resp)
}

func (c *ProjectClient) DecodeProjects(resp *Response) ([]model.Project, error) {
	return DecodeList[model.Project](resp)
}

func (c *ProjectClient) DecodeDocuments(resp *Response) ([]model.Document, error) {
	return DecodeList[model.Document](resp)
}
