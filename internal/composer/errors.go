package composer

import (
	"errors"
	"fmt"

	"github.com/satindergrewal/wordrill/internal/catalog"
)

var (
	// ErrEmptySelection is returned before any decoding when no words are given.
	ErrEmptySelection = errors.New("no words selected")

	// ErrClipUnavailable matches every *ClipUnavailableError.
	ErrClipUnavailable = errors.New("clip unavailable")

	// ErrInvalidRequest covers out-of-range pass counts and durations.
	ErrInvalidRequest = errors.New("invalid compose request")
)

// ClipUnavailableError names the word and side whose clip could not be read.
type ClipUnavailableError struct {
	Word string
	Side catalog.Side
	Err  error
}

func (e *ClipUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s clip for %q unavailable: %v", e.Side, e.Word, e.Err)
	}
	return fmt.Sprintf("%s clip for %q unavailable", e.Side, e.Word)
}

func (e *ClipUnavailableError) Unwrap() error { return e.Err }

func (e *ClipUnavailableError) Is(target error) bool {
	return target == ErrClipUnavailable
}
