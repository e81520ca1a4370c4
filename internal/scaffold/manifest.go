package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestFile is written at the root of every generated project.
const ManifestFile = "scaffai.yaml"

// Manifest records how a project was generated and which snippets were
// applied to it since.
type Manifest struct {
	Name      string           `yaml:"name"`
	Template  string           `yaml:"template"`
	Username  string           `yaml:"username,omitempty"`
	Database  string           `yaml:"database,omitempty"`
	CreatedAt time.Time        `yaml:"created_at"`
	Snippets  []AppliedSnippet `yaml:"snippets,omitempty"`
}

type AppliedSnippet struct {
	Snippet   string    `yaml:"snippet"`
	File      string    `yaml:"file"`
	AppliedAt time.Time `yaml:"applied_at"`
}

// LoadManifest reads the manifest of projectDir. A project without one yields
// (nil, nil).
func LoadManifest(projectDir string) (*Manifest, error) {
	path := filepath.Join(projectDir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

func saveManifest(projectDir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(projectDir, ManifestFile), data, 0o644)
}
