package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// KeywordLimit caps how many keyword candidates the list page shows.
	KeywordLimit int `json:"keyword_limit"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`
}

// Dataset describes one isolated collection of bundles, memos, and links.
type Dataset struct {
	// ID is the dataset identifier used in URLs and store operations.
	ID string `json:"id"`

	// Label is the human-readable dataset name shown in the UI.
	Label string `json:"label"`

	// ImagePath is an optional banner image, relative to the static dir.
	ImagePath string `json:"image_path,omitempty"`

	// TreeFile is an optional indent-based keyword tree file used to group
	// link entries on the links page. Relative paths resolve against the
	// base directory.
	TreeFile string `json:"tree_file,omitempty"`
}

// Datasets is the ordered list of configured datasets.
type Datasets []Dataset

// ByID returns the dataset with the given id, or false if not configured.
func (ds Datasets) ByID(id string) (Dataset, bool) {
	for _, d := range ds {
		if d.ID == id {
			return d, true
		}
	}
	return Dataset{}, false
}

// IDs returns the dataset ids in configured order.
func (ds Datasets) IDs() []string {
	ids := make([]string, len(ds))
	for i, d := range ds {
		ids[i] = d.ID
	}
	return ids
}

// datasetsFile is the on-disk shape of datasets.json.
type datasetsFile struct {
	Datasets []Dataset `json:"datasets"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		KeywordLimit: 15,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir().
func Load(baseDir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.KeywordLimit <= 0 {
		cfg.KeywordLimit = DefaultConfig().KeywordLimit
	}
	return cfg, nil
}

// LoadDatasets loads dataset definitions from baseDir/datasets.json.
// When the file is missing, a default two-dataset file is written first so
// a fresh install comes up editable. At least one dataset is required.
func LoadDatasets(baseDir string) (Datasets, error) {
	path := filepath.Join(baseDir, "datasets.json")

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeDefaultDatasets(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file datasetsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("datasets.json: %w", err)
	}

	if err := validateDatasets(file.Datasets); err != nil {
		return nil, err
	}
	return file.Datasets, nil
}

// validateDatasets checks that at least one dataset exists and ids are
// unique and URL-safe.
func validateDatasets(datasets []Dataset) error {
	if len(datasets) == 0 {
		return fmt.Errorf("datasets.json must define at least one dataset")
	}

	seen := make(map[string]bool, len(datasets))
	for _, d := range datasets {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			return fmt.Errorf("datasets.json: dataset with empty id")
		}
		if strings.ContainsAny(id, "/ \t") {
			return fmt.Errorf("datasets.json: dataset id %q must not contain slashes or whitespace", id)
		}
		if seen[id] {
			return fmt.Errorf("datasets.json: duplicate dataset id %q", id)
		}
		seen[id] = true
	}
	return nil
}

// writeDefaultDatasets creates the default datasets.json.
func writeDefaultDatasets(path string) error {
	defaults := datasetsFile{
		Datasets: []Dataset{
			{ID: "set_a", Label: "Set A"},
			{ID: "set_b", Label: "Set B"},
		},
	}

	data, err := json.MarshalIndent(defaults, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
