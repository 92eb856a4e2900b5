package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrUnknownPlugin is returned for a key nothing is registered under.
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrPluginDisabled is returned for a registered plugin the manifest
	// did not enable.
	ErrPluginDisabled = errors.New("plugin disabled")
)

// Manifest lists the plugins to enable, e.g.
//
//	{"enabled": [{"category": "invoice", "id": "csv"}, {"category": "bank", "id": "sheets"}]}
type Manifest struct {
	Enabled []Key `json:"enabled"`
}

// LoadManifest loads a manifest from a JSON file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Validate checks that every entry names a known category and an id.
func (m *Manifest) Validate() error {
	for i, k := range m.Enabled {
		switch k.Category {
		case CategoryInvoice, CategoryAddress, CategoryBank:
		default:
			return fmt.Errorf("entry %d: invalid category %q", i, k.Category)
		}
		if k.ID == "" {
			return fmt.Errorf("entry %d: id is required", i)
		}
	}
	return nil
}
