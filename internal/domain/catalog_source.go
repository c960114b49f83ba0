package domain

import "context"

// RepositoryInfo identifies a remote repository and its capabilities
type RepositoryInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// CatalogSource fetches catalog data from a remote repository
type CatalogSource interface {
	// Handshake establishes the repository identity and capabilities
	Handshake(ctx context.Context) (*RepositoryInfo, error)

	// FetchCatalog fetches the full current catalog
	FetchCatalog(ctx context.Context) ([]*PluginPackage, error)
}
