package argmap

// Response is the outcome of one extraction as returned to API callers and
// persisted as a result record.
type Response struct {
	Success   bool         `json:"success"`
	Result    *ArgumentMap `json:"result"`
	Error     *string      `json:"error"`
	SavedHash *string      `json:"saved_hash"`
}

// NewResult wraps a successful extraction.
func NewResult(m *ArgumentMap) Response {
	return Response{Success: true, Result: m}
}

// NewFailure wraps a user-visible error message.
func NewFailure(msg string) Response {
	return Response{Success: false, Error: &msg}
}
