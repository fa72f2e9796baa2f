package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
)

// Catalog formats accepted by WriteCatalog.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// WriteCatalog encodes cat as an indented JSON array or a YAML sequence.
func WriteCatalog(w io.Writer, cat catalog.Catalog, format string) error {
	if cat == nil {
		cat = catalog.Catalog{}
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cat); err != nil {
			return fmt.Errorf("export: encode catalog json: %w", err)
		}
		return nil
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cat); err != nil {
			return fmt.Errorf("export: encode catalog yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("export: encode catalog yaml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("export: unknown catalog format %q", format)
	}
}
