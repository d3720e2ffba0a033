package search

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"

	"projector/internal/engines/httpclient"
	"projector/pkg/logging"
)

const subsystem = "SearchClient"

// Client implements Engine over the engine's REST API.
type Client struct {
	http *httpclient.Client
}

var _ Engine = (*Client)(nil)

// NewClient creates a client for the engine at cfg.BaseURL.
func NewClient(cfg httpclient.Config) (*Client, error) {
	cfg.Subsystem = subsystem
	c, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{http: c}, nil
}

func (c *Client) UpsertRole(ctx context.Context, name string, role Role) error {
	if role.Cluster == nil {
		role.Cluster = []string{}
	}
	if role.Indices == nil {
		role.Indices = []IndexPrivileges{}
	}
	if err := c.http.Put(ctx, "_security/role/"+url.PathEscape(name), role, nil); err != nil {
		return fmt.Errorf("upsert role %s: %w", name, err)
	}
	return nil
}

func (c *Client) DeleteRole(ctx context.Context, name string) error {
	if err := httpclient.IgnoreNotFound(c.http.Delete(ctx, "_security/role/"+url.PathEscape(name))); err != nil {
		return fmt.Errorf("delete role %s: %w", name, err)
	}
	return nil
}

type templateBody struct {
	IndexPatterns []string       `json:"index_patterns"`
	Priority      int            `json:"priority"`
	Template      templateInner  `json:"template"`
	Meta          map[string]any `json:"_meta,omitempty"`
}

type templateInner struct {
	Settings map[string]any   `json:"settings,omitempty"`
	Mappings map[string]any   `json:"mappings,omitempty"`
	Aliases  map[string]Alias `json:"aliases,omitempty"`
}

func (c *Client) UpsertIndexTemplate(ctx context.Context, tpl Template) error {
	body := templateBody{
		IndexPatterns: tpl.IndexPatterns,
		Priority:      tpl.Priority,
		Template: templateInner{
			Settings: tpl.Settings,
			Mappings: tpl.Mappings,
			Aliases:  tpl.Aliases,
		},
		Meta: map[string]any{"managed_by": "projector"},
	}
	if err := c.http.Put(ctx, "_index_template/"+url.PathEscape(tpl.Name), body, nil); err != nil {
		return fmt.Errorf("upsert index template %s: %w", tpl.Name, err)
	}
	return nil
}

func (c *Client) DeleteIndexTemplate(ctx context.Context, namePattern string) error {
	if err := httpclient.IgnoreNotFound(c.http.Delete(ctx, "_index_template/"+url.PathEscape(namePattern))); err != nil {
		return fmt.Errorf("delete index template %s: %w", namePattern, err)
	}
	return nil
}

type aliasAction struct {
	Add *aliasAdd `json:"add,omitempty"`
}

type aliasAdd struct {
	Index  string         `json:"index"`
	Alias  string         `json:"alias"`
	Filter map[string]any `json:"filter,omitempty"`
}

func (c *Client) UpsertAlias(ctx context.Context, alias, target string, filter map[string]any) error {
	body := map[string]any{
		"actions": []aliasAction{{Add: &aliasAdd{Index: target, Alias: alias, Filter: filter}}},
	}
	err := c.http.Post(ctx, "_aliases", body, nil)
	if httpclient.IsNotFound(err) {
		// No index matches the target yet; the alias template attaches the
		// alias once the first index is created.
		logging.Debug(subsystem, "No index matches %s yet, alias %s left to its template", target, alias)
		return nil
	}
	if err != nil {
		return fmt.Errorf("upsert alias %s: %w", alias, err)
	}
	return nil
}

func (c *Client) DeleteAlias(ctx context.Context, alias string) error {
	if err := httpclient.IgnoreNotFound(c.http.Delete(ctx, "_all/_alias/"+url.PathEscape(alias))); err != nil {
		return fmt.Errorf("delete alias %s: %w", alias, err)
	}
	return nil
}

type userBody struct {
	User
	Password string `json:"password,omitempty"`
}

func (c *Client) UpsertUser(ctx context.Context, user User) error {
	path := "_security/user/" + url.PathEscape(user.Username)
	body := userBody{User: user}
	if body.Roles == nil {
		body.Roles = []string{}
	}

	// The native realm requires a password on creation only. Users log in
	// through the platform, so new accounts get a random one.
	err := c.http.Get(ctx, path, nil, nil)
	switch {
	case httpclient.IsNotFound(err):
		pw, genErr := randomPassword()
		if genErr != nil {
			return fmt.Errorf("upsert user %s: %w", user.Username, genErr)
		}
		body.Password = pw
	case err != nil:
		return fmt.Errorf("upsert user %s: %w", user.Username, err)
	}

	if err := c.http.Put(ctx, path, body, nil); err != nil {
		return fmt.Errorf("upsert user %s: %w", user.Username, err)
	}
	return nil
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	if err := httpclient.IgnoreNotFound(c.http.Delete(ctx, "_security/user/"+url.PathEscape(username))); err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	return nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
