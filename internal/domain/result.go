package domain

// Result is the uniform outcome of a fallible catalog operation, carrying
// a success flag, a human-readable message, an error message distinct from
// the success message, an optional underlying cause and a typed payload.
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Cause   error  `json:"-"`
	Data    T      `json:"data,omitempty"`
}

// Ok builds a successful result with a payload
func Ok[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Message: message, Data: data}
}

// Fail builds a failed result with an error message and optional cause
func Fail[T any](message string, cause error) Result[T] {
	r := Result[T]{Success: false, Error: message, Cause: cause}
	if cause != nil && message == "" {
		r.Error = cause.Error()
	}
	return r
}
