package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as "2s" in JSON and YAML. Bare numbers
// are read as seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) set(raw any) error {
	switch typed := raw.(type) {
	case nil:
		return nil
	case string:
		parsed, err := time.ParseDuration(typed)
		if err != nil {
			return fmt.Errorf("config: duration %q: %w", typed, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(typed * float64(time.Second))
	case int:
		*d = Duration(time.Duration(typed) * time.Second)
	default:
		return fmt.Errorf("config: unsupported duration %v", raw)
	}
	return nil
}
