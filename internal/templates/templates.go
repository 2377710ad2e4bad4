// Package templates ships the versioned scaffolding assets used by the
// create and startproject commands. Assets are grouped by the platform
// version they target, so descriptors written for an older JIVAS release
// keep validating against the layout that release expects.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

//go:embed all:assets
var assets embed.FS

// Has reports whether scaffolding assets ship for the given platform
// version.
func Has(version string) bool {
	info, err := fs.Stat(assets, path.Join("assets", version))
	return err == nil && info.IsDir()
}

// Read returns one asset file for a platform version.
func Read(version, name string) ([]byte, error) {
	data, err := fs.ReadFile(assets, path.Join("assets", version, name))
	if err != nil {
		return nil, fmt.Errorf("template for version %s not found", version)
	}
	return data, nil
}

// Dir returns the asset tree for a platform version, rooted at the
// version directory.
func Dir(version string) (fs.FS, error) {
	if !Has(version) {
		return nil, fmt.Errorf("template for version %s not found", version)
	}
	return fs.Sub(assets, path.Join("assets", version))
}
