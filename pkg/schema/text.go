package schema

import (
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultLocale is the locale key definitions use for untranslated text.
const DefaultLocale = "default"

// Text is a possibly localized string. Definitions carry either a plain string
// or an object keyed by locale ({"default": "Age", "fa": "سن"}).
type Text struct {
	Default string
	Locales map[string]string
}

// PlainText wraps an untranslated string.
func PlainText(value string) Text {
	return Text{Default: value}
}

// IsZero reports whether no variant carries any content.
func (t Text) IsZero() bool {
	if strings.TrimSpace(t.Default) != "" {
		return false
	}
	for _, value := range t.Locales {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// Resolve picks the text for locale, then the default variant, then the first
// locale in sorted order. Markup is stripped. When nothing is left the
// fallback is returned.
func (t Text) Resolve(locale, fallback string) string {
	for _, candidate := range t.candidates(locale) {
		if cleaned := stripMarkup(candidate); cleaned != "" {
			return cleaned
		}
	}
	return fallback
}

func (t Text) candidates(locale string) []string {
	out := make([]string, 0, len(t.Locales)+2)
	if locale != "" && locale != DefaultLocale {
		if value, ok := t.Locales[locale]; ok {
			out = append(out, value)
		}
	}
	out = append(out, t.Default)
	if value, ok := t.Locales[DefaultLocale]; ok {
		out = append(out, value)
	}
	keys := make([]string, 0, len(t.Locales))
	for key := range t.Locales {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out = append(out, t.Locales[key])
	}
	return out
}

// TextFrom decodes a string or locale map. Other values yield a zero Text.
func TextFrom(value any) Text {
	switch typed := value.(type) {
	case string:
		return Text{Default: typed}
	case map[string]any:
		out := Text{Locales: make(map[string]string, len(typed))}
		for key, raw := range typed {
			str, ok := raw.(string)
			if !ok {
				continue
			}
			if key == DefaultLocale {
				out.Default = str
				continue
			}
			out.Locales[key] = str
		}
		if len(out.Locales) == 0 {
			out.Locales = nil
		}
		return out
	case nil:
		return Text{}
	default:
		return Text{Default: stringify(typed)}
	}
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

func stripMarkup(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.ContainsAny(trimmed, "<&") {
		return trimmed
	}
	cleaned := textSanitizer().Sanitize(trimmed)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
