package extract

import "fmt"

// Category classifies an extraction failure for user-facing reporting.
type Category string

const (
	// CategoryInvalidInput covers rejections made before any remote call:
	// wrong MIME type, oversized or implausibly small files.
	CategoryInvalidInput Category = "invalid_input"
	// CategoryTimeout means the extraction job did not finish in time.
	CategoryTimeout Category = "timeout"
	// CategoryRateLimited means the extraction service throttled us.
	CategoryRateLimited Category = "rate_limited"
	// CategoryMisconfigured means the service rejected our credentials or
	// no API key is configured.
	CategoryMisconfigured Category = "misconfigured"
	// CategoryUnparsable means the service response held no usable JSON.
	CategoryUnparsable Category = "unparsable"
	// CategoryNoIdentity means the response lacked courseName or courseCode.
	CategoryNoIdentity Category = "no_identity"
	// CategoryUnavailable covers other remote failures; retryable.
	CategoryUnavailable Category = "unavailable"
)

// Error is a typed extraction failure with a user-facing message.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %v", e.Message, e.Err)
	}
	return "extract: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(cat Category, msg string, err error) *Error {
	return &Error{Category: cat, Message: msg, Err: err}
}
