package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogServer(t *testing.T, repository, catalog string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/repository", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(repository))
	})
	mux.HandleFunc("/api/v1/catalog", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(catalog))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCatalogClient_Handshake(t *testing.T) {
	server := catalogServer(t,
		`{"id":"official","name":"Official Plugin Repository","version":"2.1","capabilities":["search","verify"]}`,
		`{"packages":[]}`)

	client := NewCatalogClient(server.URL+"/", 0)
	info, err := client.Handshake(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "official", info.ID)
	assert.Equal(t, "Official Plugin Repository", info.Name)
	assert.Equal(t, "2.1", info.Version)
	assert.Equal(t, []string{"search", "verify"}, info.Capabilities)
}

func TestCatalogClient_Handshake_NoIdentity(t *testing.T) {
	server := catalogServer(t, `{"name":"anonymous"}`, `{}`)

	client := NewCatalogClient(server.URL, 0)
	_, err := client.Handshake(context.Background())

	assert.Error(t, err)
}

func TestCatalogClient_FetchCatalog(t *testing.T) {
	server := catalogServer(t,
		`{"id":"official","name":"Official"}`,
		`{
			"repository": {"id":"official"},
			"packages": [
				{"id":"vim-mode","name":"Vim Mode","versions":[{"version":"1.0.0","release_status":"stable"}]},
				{"id":"zen-theme","name":"Zen Theme"}
			]
		}`)

	client := NewCatalogClient(server.URL, 0)
	packages, err := client.FetchCatalog(context.Background())

	require.NoError(t, err)
	require.Len(t, packages, 2)
	assert.Equal(t, "vim-mode", packages[0].ID)
	require.Len(t, packages[0].Versions, 1)
	assert.Equal(t, "1.0.0", packages[0].Versions[0].Version)
}

func TestCatalogClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, 0)

	_, err := client.Handshake(context.Background())
	assert.Error(t, err)

	_, err = client.FetchCatalog(context.Background())
	assert.Error(t, err)
}

func TestCatalogClient_MalformedJSON(t *testing.T) {
	server := catalogServer(t, `{not json`, `also not json`)

	client := NewCatalogClient(server.URL, 0)

	_, err := client.Handshake(context.Background())
	assert.Error(t, err)
}
