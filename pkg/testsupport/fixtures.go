// Package testsupport holds fixtures shared by package tests: a small corpus
// of form definitions, responses and project phases laid out the way the
// forms API serves them.
package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/goliatone/go-formcatalog/pkg/observation"
	"github.com/goliatone/go-formcatalog/pkg/schema"
)

// Fixture routes under Dir.
const (
	FormsRoute     = "surveys"
	ResponsesRoute = "responses"
	PhasesRoute    = "phases"
)

// Dir returns the absolute path of the fixture directory. It can back a
// file source directly.
func Dir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "testdata"
	}
	return filepath.Join(filepath.Dir(file), "testdata")
}

// Path returns the fixture file of route.
func Path(route string) string {
	return filepath.Join(Dir(), route+".json")
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// MustDecodeJSON decodes data keeping numbers as json.Number.
func MustDecodeJSON(t *testing.T, data string) any {
	t.Helper()

	out, err := decodeJSON([]byte(data))
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return out
}

// LoadForms reads the form fixture using the default field paths.
func LoadForms(t *testing.T) []schema.Form {
	t.Helper()

	forms, err := LoadFormsFromPath(Path(FormsRoute))
	if err != nil {
		t.Fatalf("load forms: %v", err)
	}
	return forms
}

// LoadFormsFromPath returns forms without requiring testing.T.
func LoadFormsFromPath(path string) ([]schema.Form, error) {
	items, err := readContent(path)
	if err != nil {
		return nil, err
	}
	forms := make([]schema.Form, 0, len(items))
	for _, item := range items {
		forms = append(forms, schema.Form{
			Code:        text(item["id"]),
			Name:        text(item["surveyName"]),
			Description: text(item["surveyDescription"]),
			Definition:  item["json"],
		})
	}
	return forms, nil
}

// LoadResponses reads the response fixture. The "site" attribute is kept
// as a response field.
func LoadResponses(t *testing.T) []observation.Response {
	t.Helper()

	items, err := readContent(Path(ResponsesRoute))
	if err != nil {
		t.Fatalf("load responses: %v", err)
	}
	out := make([]observation.Response, 0, len(items))
	for _, item := range items {
		resp := observation.Response{
			SubjectID:     text(item["patientId"]),
			FormCode:      text(item["surveyId"]),
			FillTimestamp: text(item["fillDate"]),
			Payload:       item["json"],
		}
		if site, ok := item["site"]; ok {
			resp.Fields = map[string]any{"site": site}
		}
		out = append(out, resp)
	}
	return out
}

func readContent(path string) ([]map[string]any, error) {
	if path == "" {
		return nil, errors.New("testsupport: fixture path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read fixture: %w", err)
	}
	payload, err := decodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("testsupport: decode %s: %w", path, err)
	}
	doc, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("testsupport: %s is not an object", path)
	}
	list, _ := doc["content"].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if item, ok := entry.(map[string]any); ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func text(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}
