package sources

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/medfeed/internal/types"
)

// fileSource mirrors types.SourceSpec on disk. A selector entry may be a
// single string or a list of strings.
type fileSource struct {
	Name          string                  `yaml:"name"`
	URL           string                  `yaml:"url"`
	Category      selectorList            `yaml:"category"`
	Language      string                  `yaml:"language"`
	Selectors     map[string]selectorList `yaml:"selectors"`
	Headers       map[string]string       `yaml:"headers"`
	RequiresJS    bool                    `yaml:"requires_js"`
	SkipTLSVerify bool                    `yaml:"skip_tls_verify"`
}

type fileCatalog struct {
	Sources []fileSource `yaml:"sources"`
}

type selectorList []string

func (l *selectorList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = selectorList{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// LoadFile reads a YAML source catalog from path.
func LoadFile(path string) ([]types.SourceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source catalog: %w", err)
	}
	specs, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// Decode parses a YAML source catalog and validates every entry.
func Decode(r io.Reader) ([]types.SourceSpec, error) {
	var cat fileCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding source catalog: %w", err)
	}

	specs := make([]types.SourceSpec, 0, len(cat.Sources))
	for i, fs := range cat.Sources {
		spec := types.SourceSpec{
			Name:          fs.Name,
			URL:           fs.URL,
			Categories:    []string(fs.Category),
			Language:      fs.Language,
			Selectors:     make(types.SelectorMap, len(fs.Selectors)),
			Headers:       fs.Headers,
			RequiresJS:    fs.RequiresJS,
			SkipTLSVerify: fs.SkipTLSVerify,
		}
		for field, sels := range fs.Selectors {
			spec.Selectors[field] = []string(sels)
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("source #%d: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
