// utils/catalog.go
package utils

import (
	"os"
	"path/filepath"
)

// FindModuleConfigs walks an extracted catalog bundle and returns every
// config.json path, one per module directory, in walk order.
func FindModuleConfigs(root string) ([]string, error) {
	var configs []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.Name() == "config.json" {
			configs = append(configs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return configs, nil
}
