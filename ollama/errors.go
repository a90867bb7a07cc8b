package ollama

import (
	"errors"
	"fmt"
)

var (
	// ErrInference wraps every generate failure.
	ErrInference = errors.New("ollama: inference failed")
	// ErrEmbedding wraps every embeddings failure.
	ErrEmbedding = errors.New("ollama: embedding failed")
	// ErrTimeout marks a call that exceeded its deadline. It is always
	// joined with ErrInference or ErrEmbedding.
	ErrTimeout = errors.New("ollama: request timed out")
)

// StatusError reports a non-200 response from the model server.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string // first 512 bytes
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.Code, e.Endpoint, e.Body)
}
