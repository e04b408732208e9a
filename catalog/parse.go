package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jsccast/yaml"
)

// ParseYAML decodes (but does not compile) a catalog document.
func ParseYAML(bs []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(bs, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseJSON decodes (but does not compile) a catalog document.
func ParseJSON(bs []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(bs, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Parse decodes a document as JSON if it looks like JSON and as YAML
// otherwise.
func Parse(bs []byte) (*Catalog, error) {
	if s := strings.TrimSpace(string(bs)); strings.HasPrefix(s, "{") {
		return ParseJSON(bs)
	}
	return ParseYAML(bs)
}

// Load reads, decodes and compiles a catalog file with the standard
// dialects.
func Load(filename string) (*Catalog, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var c *Catalog
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		c, err = ParseJSON(bs)
	default:
		c, err = ParseYAML(bs)
	}
	if err != nil {
		return nil, err
	}
	if err = c.Compile(nil, true); err != nil {
		return nil, err
	}
	return c, nil
}
