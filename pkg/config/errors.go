package config

import "fmt"

// MissingRequiredPath reports a configuration entry that must be set before
// anything can be fetched.
type MissingRequiredPath struct {
	Path string
}

func (e *MissingRequiredPath) Error() string {
	return fmt.Sprintf("config: %s is required", e.Path)
}
