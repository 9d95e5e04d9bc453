package habit

import "fmt"

// ConfigurationError reports a habit whose configuration the engine cannot
// interpret, such as an unknown frequency tag.
type ConfigurationError struct {
	Field string
	Value string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// ValidationError reports user input rejected by the record factories.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bad habit %s: %s", e.Field, e.Reason)
}
