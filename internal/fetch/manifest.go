package fetch

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is a declarative list of artifacts to fetch.
type Manifest struct {
	Artifacts []ManifestArtifact `yaml:"artifacts"`
}

// ManifestArtifact is one manifest entry. URL and signature fields may
// use {os}/{arch} placeholders when the manager has platform info.
type ManifestArtifact struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	SHA1      string `yaml:"sha1,omitempty"`
	Dest      string `yaml:"dest"`
	Signature string `yaml:"signature,omitempty"`
	Keyring   string `yaml:"keyring,omitempty"`
	Extract   bool   `yaml:"extract,omitempty"`
	ExtractTo string `yaml:"extract_to,omitempty"`
	Format    string `yaml:"format,omitempty"`
}

// SyncError reports which manifest artifact failed and why. Sync stops
// at the first failure; artifacts fetched before it stay on disk.
type SyncError struct {
	Artifact string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync artifact %s: %v", e.Artifact, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// LoadManifest reads and validates a YAML manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if len(manifest.Artifacts) == 0 {
		return nil, fmt.Errorf("manifest %s declares no artifacts", path)
	}

	seen := make(map[string]bool, len(manifest.Artifacts))
	for i, a := range manifest.Artifacts {
		if a.Name == "" {
			return nil, fmt.Errorf("artifact %d: name is required", i)
		}
		if a.URL == "" {
			return nil, fmt.Errorf("artifact %s: url is required", a.Name)
		}
		if a.Dest == "" {
			return nil, fmt.Errorf("artifact %s: dest is required", a.Name)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("duplicate artifact name: %s", a.Name)
		}
		seen[a.Name] = true
	}

	return &manifest, nil
}

// Sync fetches every manifest artifact in order. The first failure
// aborts the run with a SyncError naming the artifact.
func (m *Manager) Sync(ctx context.Context, manifest *Manifest) error {
	for _, a := range manifest.Artifacts {
		m.logger.Info("syncing artifact", "name", a.Name, "url", a.URL)

		req := Request{
			URL:          a.URL,
			Dest:         a.Dest,
			SHA1:         a.SHA1,
			SignatureURL: a.Signature,
			KeyringPath:  a.Keyring,
			Extract:      a.Extract,
			ExtractTo:    a.ExtractTo,
			Format:       a.Format,
		}

		if _, err := m.Fetch(ctx, req); err != nil {
			return &SyncError{Artifact: a.Name, Err: err}
		}
	}

	return nil
}
