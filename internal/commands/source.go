package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Factory is one entry of the command registration table.
// New must return a fresh command each time it is called.
type Factory struct {
	ID  string
	New func() (Command, error)
}

// Artifact is one candidate command found by a Source.
type Artifact struct {
	Name string
	Open func() (Command, error)
}

// Source enumerates command artifacts in a location.
type Source interface {
	Artifacts(dir string) ([]Artifact, error)
}

// Manifest is the on-disk description of a command. It selects a factory from
// the registration table and may adjust how the command is presented.
type Manifest struct {
	Command     string  `yaml:"command" toml:"command"`
	Description string  `yaml:"description,omitempty" toml:"description"`
	Permission  *Policy `yaml:"permission,omitempty" toml:"permission"`
	Enabled     *bool   `yaml:"enabled,omitempty" toml:"enabled"`
}

var manifestExtensions = map[string]func([]byte, *Manifest) error{
	".yaml": decodeYAMLManifest,
	".yml":  decodeYAMLManifest,
	".toml": decodeTOMLManifest,
}

// IsManifest reports whether a file name is a command manifest. Hidden files
// and names starting with an underscore are ignored.
func IsManifest(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return false
	}
	_, ok := manifestExtensions[strings.ToLower(filepath.Ext(name))]

	return ok
}

// ManifestSource reads command manifests from a directory.
type ManifestSource struct {
	fs        afero.Fs
	factories map[string]Factory
}

// NewManifestSource creates a source resolving manifests against factories.
// Later factories replace earlier ones with the same ID.
func NewManifestSource(fs afero.Fs, factories []Factory) *ManifestSource {
	byID := make(map[string]Factory, len(factories))
	for _, f := range factories {
		byID[f.ID] = f
	}

	return &ManifestSource{fs: fs, factories: byID}
}

// Artifacts lists the manifests in dir, sorted by file name.
func (s *ManifestSource) Artifacts(dir string) ([]Artifact, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read commands directory %s: %w", dir, err)
	}

	var out []Artifact
	for _, entry := range entries {
		if entry.IsDir() || !IsManifest(entry.Name()) {
			continue
		}
		file := filepath.Join(dir, entry.Name())
		out = append(out, Artifact{
			Name: entry.Name(),
			Open: func() (Command, error) { return s.open(file) },
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (s *ManifestSource) open(file string) (Command, error) {
	data, err := afero.ReadFile(s.fs, file)
	if err != nil {
		return nil, err
	}

	var m Manifest
	decode := manifestExtensions[strings.ToLower(filepath.Ext(file))]
	if err := decode(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Enabled != nil && !*m.Enabled {
		return nil, ErrDisabled
	}
	if m.Command == "" {
		return nil, errors.New("manifest does not name a command")
	}

	factory, ok := s.factories[m.Command]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFactory, m.Command)
	}

	cmd, err := factory.New()
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, fmt.Errorf("factory %q returned no command", m.Command)
	}
	if m.Description == "" && m.Permission == nil {
		return cmd, nil
	}

	return &configured{Command: cmd, description: m.Description, policy: m.Permission}, nil
}

func decodeYAMLManifest(data []byte, m *Manifest) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty manifest")
		}

		return err
	}

	return nil
}

func decodeTOMLManifest(data []byte, m *Manifest) error {
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys %v", undecoded)
	}

	return nil
}

// configured applies manifest overrides on top of a factory-built command.
type configured struct {
	Command
	description string
	policy      *Policy
}

func (c *configured) Description() string {
	if c.description != "" {
		return c.description
	}

	return c.Command.Description()
}

func (c *configured) Permission() *Policy {
	if c.policy != nil {
		return c.policy
	}

	return c.Command.Permission()
}

// FactorySource offers every registered factory as an artifact, ordered by
// ID. It is used when no commands directory is configured.
type FactorySource struct {
	factories []Factory
}

// NewFactorySource creates a source over the registration table.
func NewFactorySource(factories []Factory) *FactorySource {
	sorted := append([]Factory(nil), factories...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	return &FactorySource{factories: sorted}
}

// Artifacts ignores dir and returns one artifact per factory.
func (s *FactorySource) Artifacts(string) ([]Artifact, error) {
	out := make([]Artifact, 0, len(s.factories))
	for _, f := range s.factories {
		out = append(out, Artifact{Name: f.ID, Open: f.New})
	}

	return out, nil
}
