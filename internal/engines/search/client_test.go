package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/engines/httpclient"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		mu.Lock()
		requests = append(requests, rec)
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(httpclient.Config{BaseURL: srv.URL, RetryMax: 0})
	require.NoError(t, err)
	return c, &requests
}

func TestClient_UpsertUserCreatesWithPassword(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	err := c.UpsertUser(context.Background(), User{Username: "jdoe", Email: "j@doe.io", FullName: "J Doe"})
	require.NoError(t, err)

	require.Len(t, *reqs, 2)
	put := (*reqs)[1]
	assert.Equal(t, http.MethodPut, put.Method)
	assert.Equal(t, "/_security/user/jdoe", put.Path)
	assert.NotEmpty(t, put.Body["password"])
	assert.Equal(t, "J Doe", put.Body["full_name"])
	assert.Equal(t, []any{}, put.Body["roles"])
}

func TestClient_UpsertUserKeepsExistingPassword(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jdoe":{}}`))
	})

	require.NoError(t, c.UpsertUser(context.Background(), User{Username: "jdoe", Roles: []string{"superuser"}}))
	put := (*reqs)[1]
	_, hasPassword := put.Body["password"]
	assert.False(t, hasPassword)
	assert.Equal(t, []any{"superuser"}, put.Body["roles"])
}

func TestClient_UpsertIndexTemplate(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	err := c.UpsertIndexTemplate(context.Background(), Template{
		Name:          "projector.repository.a-_",
		IndexPatterns: []string{"a-*"},
		Priority:      404,
		Mappings:      map[string]any{"properties": map[string]any{}},
		Aliases:       map[string]Alias{"a-alias": {Filter: map[string]any{"match_all": map[string]any{}}}},
	})
	require.NoError(t, err)

	req := (*reqs)[0]
	assert.Equal(t, "/_index_template/projector.repository.a-_", req.Path)
	assert.Equal(t, float64(404), req.Body["priority"])
	assert.Equal(t, []any{"a-*"}, req.Body["index_patterns"])
	tpl := req.Body["template"].(map[string]any)
	assert.Contains(t, tpl["aliases"], "a-alias")
}

func TestClient_DeletesAreIdempotent(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	ctx := context.Background()

	assert.NoError(t, c.DeleteRole(ctx, "repository.a-*.x.all"))
	assert.NoError(t, c.DeleteIndexTemplate(ctx, "projector.repository.a-_"))
	assert.NoError(t, c.DeleteAlias(ctx, "a-alias"))
	assert.NoError(t, c.DeleteUser(ctx, "jdoe"))
	assert.NoError(t, c.UpsertAlias(ctx, "a-alias", "a-*", nil))
}

func TestClient_UpsertRoleFailure(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	err := c.UpsertRole(context.Background(), "alias.a.readonly", Role{
		Indices: []IndexPrivileges{{Names: []string{"a"}, Privileges: ReadonlyPrivileges}},
	})
	assert.Equal(t, http.StatusBadRequest, httpclient.StatusCode(err))
	assert.Equal(t, []any{}, (*reqs)[0].Body["cluster"])
}
