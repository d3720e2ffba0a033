package reporting

import (
	"context"
	"fmt"
	"net/url"

	"projector/internal/engines/httpclient"
)

// Client implements Engine over the reporting admin API.
type Client struct {
	http *httpclient.Client
}

var _ Engine = (*Client)(nil)

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg httpclient.Config) (*Client, error) {
	cfg.Subsystem = "ReportingClient"
	c, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{http: c}, nil
}

func (c *Client) UpsertNamespace(ctx context.Context, ns Namespace) error {
	if err := c.http.Put(ctx, "admin/namespaces/"+url.PathEscape(ns.ID), ns, nil); err != nil {
		return fmt.Errorf("upsert namespace %s: %w", ns.ID, err)
	}
	return nil
}

func (c *Client) DeleteNamespace(ctx context.Context, id string) error {
	if err := httpclient.IgnoreNotFound(c.http.Delete(ctx, "admin/namespaces/"+url.PathEscape(id))); err != nil {
		return fmt.Errorf("delete namespace %s: %w", id, err)
	}
	return nil
}

func (c *Client) UpsertUser(ctx context.Context, user User) error {
	if err := c.http.Put(ctx, "admin/users/"+url.PathEscape(user.Username), user, nil); err != nil {
		return fmt.Errorf("upsert user %s: %w", user.Username, err)
	}
	return nil
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	if err := httpclient.IgnoreNotFound(c.http.Delete(ctx, "admin/users/"+url.PathEscape(username))); err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	return nil
}

func membershipPath(namespaceID, username string) string {
	return "admin/namespaces/" + url.PathEscape(namespaceID) + "/members/" + url.PathEscape(username)
}

func (c *Client) UpsertMembership(ctx context.Context, namespaceID, username string, access Access) error {
	body := map[string]Access{"access": access}
	if err := c.http.Put(ctx, membershipPath(namespaceID, username), body, nil); err != nil {
		return fmt.Errorf("upsert membership %s/%s: %w", namespaceID, username, err)
	}
	return nil
}

func (c *Client) DeleteMembership(ctx context.Context, namespaceID, username string) error {
	if err := httpclient.IgnoreNotFound(c.http.Delete(ctx, membershipPath(namespaceID, username))); err != nil {
		return fmt.Errorf("delete membership %s/%s: %w", namespaceID, username, err)
	}
	return nil
}
