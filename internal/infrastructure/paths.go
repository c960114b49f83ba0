package infrastructure

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathProvider supplies final and temporary storage locations for a plugin
// version. Callers treat the results as opaque strings.
type PathProvider struct {
	pluginsDir string
	tempDir    string
}

// NewPathProvider creates a path provider rooted at the configured directories
func NewPathProvider(pluginsDir, tempDir string) *PathProvider {
	return &PathProvider{pluginsDir: pluginsDir, tempDir: tempDir}
}

// TargetPath returns the final storage location for a plugin version
func (p *PathProvider) TargetPath(pluginID, version string) string {
	return filepath.Join(p.pluginsDir, fmt.Sprintf("%s-%s.plugin", sanitize(pluginID), sanitize(version)))
}

// TempPath returns the in-progress storage location for a plugin version
func (p *PathProvider) TempPath(pluginID, version string) string {
	return filepath.Join(p.tempDir, fmt.Sprintf("%s-%s.part", sanitize(pluginID), sanitize(version)))
}

// sanitize keeps package ids and versions from escaping the storage root
func sanitize(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	return replacer.Replace(s)
}
