package dashboard

import (
	"context"
	"fmt"
	"net/url"

	"projector/internal/engines/httpclient"
)

const subsystem = "DashboardClient"

// DefaultWorkspace has no "/s/<id>" prefix in API paths.
const DefaultWorkspace = "default"

// Client implements Engine over the engine's REST API.
type Client struct {
	http *httpclient.Client
}

var _ Engine = (*Client)(nil)

// NewClient creates a client for the engine at cfg.BaseURL.
func NewClient(cfg httpclient.Config) (*Client, error) {
	cfg.Subsystem = subsystem
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	cfg.Headers["kbn-xsrf"] = "true"

	c, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{http: c}, nil
}

func spacePath(workspaceID, path string) string {
	if workspaceID == "" || workspaceID == DefaultWorkspace {
		return path
	}
	return "s/" + url.PathEscape(workspaceID) + "/" + path
}

func (c *Client) CreateOrUpdateWorkspace(ctx context.Context, ws Workspace) error {
	path := "api/spaces/space/" + url.PathEscape(ws.ID)

	err := c.http.Get(ctx, path, nil, nil)
	switch {
	case httpclient.IsNotFound(err):
		err = c.http.Post(ctx, "api/spaces/space", ws, nil)
	case err == nil:
		err = c.http.Put(ctx, path, ws, nil)
	}
	if err != nil {
		return fmt.Errorf("create or update workspace %s: %w", ws.ID, err)
	}
	return nil
}

func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	if err := httpclient.IgnoreNotFound(c.http.Delete(ctx, "api/spaces/space/"+url.PathEscape(id))); err != nil {
		return fmt.Errorf("delete workspace %s: %w", id, err)
	}
	return nil
}

type roleBody struct {
	Elasticsearch struct {
		Cluster []string `json:"cluster"`
		Indices []any    `json:"indices"`
	} `json:"elasticsearch"`
	Kibana []kibanaPrivileges `json:"kibana"`
}

type kibanaPrivileges struct {
	SpacePrivileges
	Feature map[string][]string `json:"feature"`
}

func (c *Client) PutRole(ctx context.Context, name string, role Role) error {
	var body roleBody
	body.Elasticsearch.Cluster = []string{}
	body.Elasticsearch.Indices = []any{}
	body.Kibana = make([]kibanaPrivileges, 0, len(role.Spaces))
	for _, sp := range role.Spaces {
		body.Kibana = append(body.Kibana, kibanaPrivileges{SpacePrivileges: sp, Feature: map[string][]string{}})
	}

	if err := c.http.Put(ctx, "api/security/role/"+url.PathEscape(name), body, nil); err != nil {
		return fmt.Errorf("put role %s: %w", name, err)
	}
	return nil
}

func (c *Client) DeleteRole(ctx context.Context, name string) error {
	if err := httpclient.IgnoreNotFound(c.http.Delete(ctx, "api/security/role/"+url.PathEscape(name))); err != nil {
		return fmt.Errorf("delete role %s: %w", name, err)
	}
	return nil
}

type savedObject struct {
	ID         string `json:"id"`
	Attributes struct {
		Title         string `json:"title"`
		TimeFieldName string `json:"timeFieldName,omitempty"`
	} `json:"attributes"`
}

type findResponse struct {
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	Total        int           `json:"total"`
	SavedObjects []savedObject `json:"saved_objects"`
}

const findPageSize = 1000

func (c *Client) ListIndexPatterns(ctx context.Context, workspaceID string) ([]IndexPattern, error) {
	var out []IndexPattern
	for page := 1; ; page++ {
		query := url.Values{
			"type":     {"index-pattern"},
			"fields":   {"title", "timeFieldName"},
			"per_page": {fmt.Sprint(findPageSize)},
			"page":     {fmt.Sprint(page)},
		}

		var resp findResponse
		if err := c.http.Get(ctx, spacePath(workspaceID, "api/saved_objects/_find"), query, &resp); err != nil {
			return nil, fmt.Errorf("list index patterns of %s: %w", workspaceID, err)
		}
		for _, so := range resp.SavedObjects {
			out = append(out, IndexPattern{ID: so.ID, Title: so.Attributes.Title, TimeFieldName: so.Attributes.TimeFieldName})
		}
		if len(resp.SavedObjects) == 0 || len(out) >= resp.Total {
			return out, nil
		}
	}
}

func (c *Client) CreateIndexPattern(ctx context.Context, workspaceID, title, timeField string) (IndexPattern, error) {
	body := map[string]any{
		"attributes": map[string]string{
			"title":         title,
			"timeFieldName": timeField,
		},
	}

	var created savedObject
	if err := c.http.Post(ctx, spacePath(workspaceID, "api/saved_objects/index-pattern"), body, &created); err != nil {
		return IndexPattern{}, fmt.Errorf("create index pattern %s in %s: %w", title, workspaceID, err)
	}
	return IndexPattern{ID: created.ID, Title: created.Attributes.Title, TimeFieldName: created.Attributes.TimeFieldName}, nil
}

type settingsResponse struct {
	Settings map[string]struct {
		UserValue any `json:"userValue"`
	} `json:"settings"`
}

func (c *Client) GetDefaultIndexPattern(ctx context.Context, workspaceID string) (string, error) {
	var resp settingsResponse
	if err := c.http.Get(ctx, spacePath(workspaceID, "api/kibana/settings"), nil, &resp); err != nil {
		return "", fmt.Errorf("get settings of %s: %w", workspaceID, err)
	}
	if v, ok := resp.Settings["defaultIndex"].UserValue.(string); ok {
		return v, nil
	}
	return "", nil
}

func (c *Client) SetDefaultIndexPattern(ctx context.Context, workspaceID, id string) error {
	body := map[string]any{"changes": map[string]any{"defaultIndex": id}}
	if err := c.http.Post(ctx, spacePath(workspaceID, "api/kibana/settings"), body, nil); err != nil {
		return fmt.Errorf("set default index pattern of %s: %w", workspaceID, err)
	}
	return nil
}
