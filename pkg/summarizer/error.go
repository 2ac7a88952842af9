package summarizer

import "errors"

// ErrMalformedResponse is returned when the summarization model's output
// cannot be parsed into the expected statements structure.
var ErrMalformedResponse = errors.New("malformed summarization response")
