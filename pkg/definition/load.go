package definition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format is the serialisation of a definition document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Parse decodes a single definition document.
// Unknown keys are errors. Scalars keep their literal text, so `alphabet: [0, 01, true]` reads as
// "0", "01" and "true".
func Parse(data []byte, format Format) (Definition, error) {
	var raw any
	switch format {
	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Definition{}, fmt.Errorf("failed to parse yaml definition: %w", err)
		}
		raw = yamlLiteral(&doc)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return Definition{}, fmt.Errorf("failed to parse json definition: %w", err)
		}
		raw = jsonLiteral(raw)
	default:
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	var def Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &def,
		ErrorUnused: true,
	})
	if err != nil {
		return Definition{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Definition{}, fmt.Errorf("failed to decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// yamlLiteral turns a node tree into maps, slices and the source text of every scalar.
func yamlLiteral(n *yaml.Node) any {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return yamlLiteral(n.Content[0])
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			m[n.Content[i].Value] = yamlLiteral(n.Content[i+1])
		}
		return m
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			items = append(items, yamlLiteral(c))
		}
		return items
	case yaml.AliasNode:
		return yamlLiteral(n.Alias)
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return nil
		}
		return n.Value
	}
	return nil
}

// jsonLiteral replaces numbers and booleans decoded with UseNumber by their JSON text.
func jsonLiteral(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, item := range v {
			v[k] = jsonLiteral(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = jsonLiteral(item)
		}
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return v
}

// LoadFile reads and parses one definition file.
func LoadFile(path string) (Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Definition{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read definition: %w", err)
	}
	def, err := Parse(data, format)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadDir parses every *.yaml, *.yml and *.json file directly under dir, sorted by file name.
// Other files are ignored.
func LoadDir(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := FormatFromPath(e.Name()); err == nil {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyDirectory, dir)
	}
	slices.Sort(paths)

	defs := make([]Definition, 0, len(paths))
	for _, p := range paths {
		def, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
