package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/plugin-hub/internal/domain"
)

// maxCatalogBody bounds how much catalog JSON the client will read
const maxCatalogBody = 64 << 20 // 64 MiB

// repositoryManifest is the wire shape of the remote repository's identity
type repositoryManifest struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

// catalogManifest is the wire shape of the remote catalog
type catalogManifest struct {
	Repository repositoryManifest      `json:"repository"`
	Packages   []*domain.PluginPackage `json:"packages"`
}

// CatalogClient fetches a repository's catalog over HTTP JSON. It
// implements domain.CatalogSource for one configured endpoint.
type CatalogClient struct {
	endpoint string
	client   *http.Client
}

// NewCatalogClient creates a catalog client for one repository endpoint
func NewCatalogClient(endpoint string, timeout time.Duration) *CatalogClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CatalogClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Handshake fetches the repository identity and capabilities
func (c *CatalogClient) Handshake(ctx context.Context) (*domain.RepositoryInfo, error) {
	var manifest repositoryManifest
	if err := c.getJSON(ctx, c.endpoint+"/api/v1/repository", &manifest); err != nil {
		return nil, err
	}
	if manifest.ID == "" {
		return nil, fmt.Errorf("repository at %s returned no identity", c.endpoint)
	}
	return &domain.RepositoryInfo{
		ID:           manifest.ID,
		Name:         manifest.Name,
		Version:      manifest.Version,
		Capabilities: manifest.Capabilities,
	}, nil
}

// FetchCatalog fetches the full package catalog
func (c *CatalogClient) FetchCatalog(ctx context.Context) ([]*domain.PluginPackage, error) {
	var manifest catalogManifest
	if err := c.getJSON(ctx, c.endpoint+"/api/v1/catalog", &manifest); err != nil {
		return nil, err
	}
	return manifest.Packages, nil
}

func (c *CatalogClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBody))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}
