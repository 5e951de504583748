// Package site loads the metadata rendered into every page.
package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Metadata describes the site and the front-end bundle pages load.
type Metadata struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Author      string   `yaml:"author"`
	Keywords    []string `yaml:"keywords"`
	BundleURL   string   `yaml:"bundle_url"`
	BundleFile  string   `yaml:"bundle_file"`
}

// Default returns the metadata used when no file is configured.
func Default() Metadata {
	return Metadata{
		Title:      "Folio",
		BundleURL:  "/bundle",
		BundleFile: "bundle.js",
	}
}

// BundlePath is the URL of the front-end script.
func (m Metadata) BundlePath() string {
	return m.BundleURL + "/" + m.BundleFile
}

// Load reads metadata from a YAML file. A missing file yields Default();
// fields left empty in the file keep their default values.
func Load(path string) (Metadata, error) {
	meta := Default()
	if path == "" {
		return meta, nil
	}

	// #nosec G304: path comes from configuration
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return meta, nil
		}
		return meta, fmt.Errorf("read site metadata: %w", err)
	}

	if err := yaml.Unmarshal(data, &meta); err != nil {
		return Default(), fmt.Errorf("parse site metadata %s: %w", path, err)
	}
	if meta.BundleURL == "" {
		meta.BundleURL = Default().BundleURL
	}
	if meta.BundleFile == "" {
		meta.BundleFile = Default().BundleFile
	}
	return meta, nil
}
