package gemini

import "fmt"

// Result is the outcome of one generateContent call. It is one of
// Success, MalformedEnvelope or TransportError.
type Result interface {
	isResult()
}

// Success carries the generated text of the first candidate.
type Success struct {
	Text string
}

// MalformedEnvelope means the provider answered 2xx but without a usable
// candidate/content/parts text.
type MalformedEnvelope struct {
	Detail string
}

// TransportError covers connection failures and non-2xx statuses.
// Status is zero when no HTTP response was received.
type TransportError struct {
	Status int
	Err    error
}

func (Success) isResult()           {}
func (MalformedEnvelope) isResult() {}
func (TransportError) isResult()    {}

func (e TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gemini upstream %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("gemini transport: %v", e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }
