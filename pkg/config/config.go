// Package config declares where forms and responses come from, which paths
// hold their fields, and how the catalog and exports are produced.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formcatalog/pkg/dataset"
)

// Source kinds.
const (
	SourceAPI  = "api"
	SourceFile = "file"
)

// Config is the full run configuration.
type Config struct {
	Source    SourceConfig    `json:"source" yaml:"source"`
	Forms     FormsConfig     `json:"forms" yaml:"forms"`
	Responses ResponsesConfig `json:"responses" yaml:"responses"`
	Project   ProjectConfig   `json:"project" yaml:"project"`
	Choices   ChoicesConfig   `json:"choices" yaml:"choices"`
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog"`
	Export    ExportConfig    `json:"export" yaml:"export"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// SourceConfig selects the transport adapter.
type SourceConfig struct {
	Kind       string            `json:"kind" yaml:"kind"`
	BaseURL    string            `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	ProjectURI string            `json:"projectUri,omitempty" yaml:"projectUri,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Paginate   bool              `json:"paginate,omitempty" yaml:"paginate,omitempty"`
	PageSize   int               `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	RateLimit  float64           `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
	Timeout    Duration          `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Dir is the root of route files for the file source.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Filter is one server-side filter condition.
type Filter struct {
	Field     string `json:"field" yaml:"field"`
	Condition string `json:"condition" yaml:"condition"`
	Value     string `json:"value" yaml:"value"`
}

// FormsConfig locates form definitions.
type FormsConfig struct {
	Route           string   `json:"route" yaml:"route"`
	ContentPath     string   `json:"contentPath,omitempty" yaml:"contentPath,omitempty"`
	IDPath          string   `json:"idPath" yaml:"idPath"`
	NamePath        string   `json:"namePath" yaml:"namePath"`
	DescriptionPath string   `json:"descriptionPath" yaml:"descriptionPath"`
	JSONPath        string   `json:"jsonPath" yaml:"jsonPath"`
	Filters         []Filter `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// IndexFields names the response attributes that key an observation.
type IndexFields struct {
	SubjectID     string `json:"subjectId" yaml:"subjectId"`
	FormCode      string `json:"formCode,omitempty" yaml:"formCode,omitempty"`
	FillTimestamp string `json:"fillTimestamp" yaml:"fillTimestamp"`
}

// ResponsesConfig locates respondent payloads.
type ResponsesConfig struct {
	Route          string      `json:"route" yaml:"route"`
	ContentPath    string      `json:"contentPath,omitempty" yaml:"contentPath,omitempty"`
	JSONPath       string      `json:"jsonPath" yaml:"jsonPath"`
	Index          IndexFields `json:"index" yaml:"index"`
	UseFields      []string    `json:"useFields,omitempty" yaml:"useFields,omitempty"`
	TimeResolution string      `json:"timeResolution" yaml:"timeResolution"`
	Filters        []Filter    `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// Enabled reports whether responses are part of the run.
func (r ResponsesConfig) Enabled() bool {
	return strings.TrimSpace(r.Route) != ""
}

// ProjectConfig locates or declares project phases.
type ProjectConfig struct {
	Route  string          `json:"route,omitempty" yaml:"route,omitempty"`
	Phases []dataset.Phase `json:"phases,omitempty" yaml:"phases,omitempty"`
}

// ChoicesConfig tunes remote option lookups.
type ChoicesConfig struct {
	BaseURL     string   `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Timeout     Duration `json:"timeout" yaml:"timeout"`
	Limit       int      `json:"limit" yaml:"limit"`
	InsecureTLS bool     `json:"insecureTls,omitempty" yaml:"insecureTls,omitempty"`
	RateLimit   float64  `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
}

// CatalogConfig tunes normalization.
type CatalogConfig struct {
	IncludeHTML      bool   `json:"includeHtml,omitempty" yaml:"includeHtml,omitempty"`
	RenameDuplicates bool   `json:"renameDuplicates" yaml:"renameDuplicates"`
	Locale           string `json:"locale,omitempty" yaml:"locale,omitempty"`
	StrictElements   bool   `json:"strictElements,omitempty" yaml:"strictElements,omitempty"`
	Workers          int    `json:"workers" yaml:"workers"`
}

// ExportConfig selects the output view and writer.
type ExportConfig struct {
	Shape         string `json:"shape" yaml:"shape"`
	RemapFields   bool   `json:"remapFields,omitempty" yaml:"remapFields,omitempty"`
	RemapValues   bool   `json:"remapValues,omitempty" yaml:"remapValues,omitempty"`
	Driver        string `json:"driver" yaml:"driver"`
	Destination   string `json:"destination" yaml:"destination"`
	CatalogFormat string `json:"catalogFormat" yaml:"catalogFormat"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Defaults returns the configuration every file is layered onto.
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			Kind:     SourceAPI,
			PageSize: 500,
			Timeout:  Duration(30 * time.Second),
		},
		Forms: FormsConfig{
			Route:           "surveys",
			ContentPath:     "content",
			IDPath:          "id",
			NamePath:        "surveyName",
			DescriptionPath: "surveyDescription",
			JSONPath:        "json",
		},
		Responses: ResponsesConfig{
			ContentPath:    "content",
			JSONPath:       "json",
			TimeResolution: "second",
		},
		Choices: ChoicesConfig{
			Timeout: Duration(2 * time.Second),
			Limit:   20,
		},
		Catalog: CatalogConfig{
			RenameDuplicates: true,
			Workers:          4,
		},
		Export: ExportConfig{
			Shape:         string(dataset.ShapeMerged),
			Driver:        "csv",
			Destination:   "observations.csv",
			CatalogFormat: "json",
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads a JSON or YAML file on top of Defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Config{}, errors.New("config: path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes data as JSON, falling back to YAML, on top of Defaults.
func Parse(data []byte, source string) (Config, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Config{}, fmt.Errorf("config: file %s is empty", source)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, &cfg); err == nil {
		return cfg, nil
	}

	cfg = Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: invalid JSON or YAML: %w", source, err)
	}
	return cfg, nil
}

// Validate reports configuration that makes a run impossible. It runs before
// anything is fetched or parsed.
func (c Config) Validate() error {
	var errs []error
	switch c.Source.Kind {
	case SourceAPI:
		if strings.TrimSpace(c.Source.BaseURL) == "" {
			errs = append(errs, &MissingRequiredPath{Path: "source.baseUrl"})
		}
	case SourceFile:
		if strings.TrimSpace(c.Source.Dir) == "" {
			errs = append(errs, &MissingRequiredPath{Path: "source.dir"})
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown source kind %q", c.Source.Kind))
	}

	if strings.TrimSpace(c.Forms.Route) == "" {
		errs = append(errs, &MissingRequiredPath{Path: "forms.route"})
	}
	if strings.TrimSpace(c.Forms.JSONPath) == "" {
		errs = append(errs, &MissingRequiredPath{Path: "forms.jsonPath"})
	}

	if c.Responses.Enabled() {
		if strings.TrimSpace(c.Responses.Index.SubjectID) == "" {
			errs = append(errs, &MissingRequiredPath{Path: "responses.index.subjectId"})
		}
		if strings.TrimSpace(c.Responses.Index.FillTimestamp) == "" {
			errs = append(errs, &MissingRequiredPath{Path: "responses.index.fillTimestamp"})
		}
		if strings.TrimSpace(c.Responses.JSONPath) == "" {
			errs = append(errs, &MissingRequiredPath{Path: "responses.jsonPath"})
		}
	}
	return errors.Join(errs...)
}
