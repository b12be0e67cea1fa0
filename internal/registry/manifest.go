package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"onefile/internal/errors"
	"onefile/internal/syntax"
)

// ManifestVersion is the current manifest schema version.
const ManifestVersion = 1

// Manifest is the on-disk form of a registry.
type Manifest struct {
	Version  int    `json:"version" toml:"version" yaml:"version"`
	Language string `json:"language" toml:"language" yaml:"language"`
	// Built is set once dependencies have been computed.
	Built   bool      `json:"built" toml:"built" yaml:"built"`
	Modules []*Module `json:"modules" toml:"modules" yaml:"modules"`
}

// Format is a manifest serialization.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.Newf(errors.ManifestInvalid, "unknown manifest extension for %q (want .toml, .yaml, .yml or .json)", path)
	}
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ManifestInvalid, fmt.Sprintf("failed to read manifest %s", path), err)
	}

	m, err := DecodeManifest(format, data)
	if err != nil {
		return nil, errors.New(errors.ManifestInvalid, fmt.Sprintf("failed to parse manifest %s", path), err)
	}
	return m, nil
}

// DecodeManifest decodes data in the given format.
func DecodeManifest(format Format, data []byte) (*Manifest, error) {
	var m Manifest
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &m)
	case FormatYAML:
		err = yaml.Unmarshal(data, &m)
	case FormatJSON:
		err = json.Unmarshal(data, &m)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	if m.Version < 1 {
		m.Version = 1
	}
	if m.Version > ManifestVersion {
		return nil, fmt.Errorf("manifest version %d is newer than supported version %d", m.Version, ManifestVersion)
	}
	return &m, nil
}

// EncodeManifest serializes m in the given format.
func EncodeManifest(format Format, m *Manifest) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(m)
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// SaveManifest writes m to path atomically, in the format implied by the extension.
func SaveManifest(path string, m *Manifest) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if m.Version == 0 {
		m.Version = ManifestVersion
	}

	data, err := EncodeManifest(format, m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename manifest: %w", err)
	}
	return nil
}

// Registry builds the registry described by the manifest.
func (m *Manifest) Registry() (*Registry, error) {
	lang, err := syntax.ParseLanguage(m.Language)
	if err != nil {
		return nil, errors.New(errors.ManifestInvalid, "manifest language", err)
	}
	if m.Built {
		return NewBuilt(lang, m.Modules)
	}
	return New(lang, m.Modules)
}

// ManifestFor captures r as a manifest.
func ManifestFor(r *Registry) *Manifest {
	return &Manifest{
		Version:  ManifestVersion,
		Language: string(r.Language()),
		Built:    r.Ready(),
		Modules:  r.Modules(),
	}
}

// Load reads the manifest at path and builds its registry.
func Load(path string) (*Registry, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return m.Registry()
}
