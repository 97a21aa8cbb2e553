package config

import "fmt"

// ConfigurationError reports a missing or invalid setting. It is fatal:
// the process must not start when Load returns one.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}
