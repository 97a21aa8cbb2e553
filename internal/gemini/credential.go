package gemini

import "errors"

// ErrMissingCredential is returned by the client constructors when no
// credential is supplied.
var ErrMissingCredential = errors.New("gemini credential is required")

const redacted = "[REDACTED]"

// Credential is the bearer token sent with every request. Its printed and
// marshaled forms are redacted so it never reaches a log line.
type Credential string

func (c Credential) String() string {
	return redacted
}

func (c Credential) GoString() string {
	return `gemini.Credential("` + redacted + `")`
}

func (c Credential) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Bearer returns the Authorization header value.
func (c Credential) Bearer() string {
	return "Bearer " + string(c)
}
