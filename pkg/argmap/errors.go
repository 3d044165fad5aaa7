package argmap

import "fmt"

// MalformedOutputError reports model output that is not valid JSON or does
// not describe an argument map. Err carries the underlying diagnostic, a
// *json.SyntaxError or a *SchemaValidationError for example.
type MalformedOutputError struct {
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("model returned malformed output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}
