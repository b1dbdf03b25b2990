package studio

import (
	"errors"
	"fmt"

	"github.com/truonghoc/studio/internal/model"
)

var (
	// ErrNoImage is returned when a response carries no inline image data.
	ErrNoImage = errors.New("no image produced")
	// ErrMalformedQuiz is returned when the quiz response is not valid JSON.
	ErrMalformedQuiz = errors.New("malformed quiz data")
	// ErrEmptyText is returned when a conversion yields no text.
	ErrEmptyText = errors.New("no text produced")
	// ErrMissingInput is returned when a required file or prompt is absent.
	ErrMissingInput = errors.New("missing required input")
	// ErrInvalidInput is returned for values outside the supported set.
	ErrInvalidInput = errors.New("invalid input")
)

// CapabilityError ties a failure to the capability that produced it.
// Premium is set for capabilities gated by credential selection, where a
// remote failure most likely means a missing or unbilled key.
type CapabilityError struct {
	Capability model.Capability
	Premium    bool
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

func wrap(c model.Capability, err error) error {
	if err == nil {
		return nil
	}
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return err
	}
	return &CapabilityError{Capability: c, Premium: c.Premium(), Err: err}
}

// IsInputError reports whether err stems from caller input rather than the
// remote service.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingInput) || errors.Is(err, ErrInvalidInput)
}
