package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/engines/httpclient"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(httpclient.Config{BaseURL: srv.URL, RetryMax: 0})
	require.NoError(t, err)
	return c
}

func TestClient_CreateOrUpdateWorkspace(t *testing.T) {
	tests := []struct {
		name       string
		getStatus  int
		wantMethod string
		wantPath   string
	}{
		{"creates missing workspace", http.StatusNotFound, http.MethodPost, "/api/spaces/space"},
		{"updates existing workspace", http.StatusOK, http.MethodPut, "/api/spaces/space/s1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path string
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "true", r.Header.Get("kbn-xsrf"))
				if r.Method == http.MethodGet {
					w.WriteHeader(tt.getStatus)
					return
				}
				method, path = r.Method, r.URL.Path
			})

			require.NoError(t, c.CreateOrUpdateWorkspace(context.Background(), Workspace{ID: "s1", Name: "Space 1"}))
			assert.Equal(t, tt.wantMethod, method)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestClient_ListIndexPatternsPages(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/s/s1/api/saved_objects/_find", r.URL.Path)
		assert.Equal(t, "index-pattern", r.URL.Query().Get("type"))

		page := r.URL.Query().Get("page")
		resp := findResponse{Total: 2}
		so := savedObject{ID: "ip" + page}
		so.Attributes.Title = fmt.Sprintf("pattern-%s-*", page)
		if page == "1" || page == "2" {
			resp.SavedObjects = []savedObject{so}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	patterns, err := c.ListIndexPatterns(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []IndexPattern{{ID: "ip1", Title: "pattern-1-*"}, {ID: "ip2", Title: "pattern-2-*"}}, patterns)
}

func TestClient_DefaultWorkspaceHasNoPrefix(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/kibana/settings", r.URL.Path)
		_, _ = w.Write([]byte(`{"settings":{"defaultIndex":{"userValue":"ip1"}}}`))
	})

	id, err := c.GetDefaultIndexPattern(context.Background(), DefaultWorkspace)
	require.NoError(t, err)
	assert.Equal(t, "ip1", id)
}

func TestClient_PutRole(t *testing.T) {
	var body map[string]any
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/security/role/space.s1.ezpaarse.readonly", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.PutRole(context.Background(), "space.s1.ezpaarse.readonly", Role{
		Spaces: []SpacePrivileges{{Base: []string{PrivilegeRead}, Spaces: []string{"s1"}}},
	})
	require.NoError(t, err)

	kibana := body["kibana"].([]any)
	require.Len(t, kibana, 1)
	entry := kibana[0].(map[string]any)
	assert.Equal(t, []any{"read"}, entry["base"])
	assert.Equal(t, []any{"s1"}, entry["spaces"])
}
