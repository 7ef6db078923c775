package utils

import (
	"os"
	"path/filepath"
)

// CatalogCacheDir is where downloaded catalog bundles are extracted.
const CatalogCacheDir = "catalog-cache"

// EnsureCatalogCacheDir creates the catalog cache directory if it doesn't exist
func EnsureCatalogCacheDir() error {
	return os.MkdirAll(CatalogCacheDir, os.ModePerm)
}

// CatalogCachePath returns the full path for a file inside the catalog cache
func CatalogCachePath(filename string) string {
	return filepath.Join(CatalogCacheDir, filename)
}
