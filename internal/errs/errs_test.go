package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := Conflict("claim trade", "already claimed")
	wrapped := fmt.Errorf("handler: %w", base)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, "already claimed", Message(wrapped))
}

func TestTransientKeepsTypedErrors(t *testing.T) {
	nf := NotFound("get nail", "nail not found")
	assert.Same(t, nf, Transient("op", nf))

	raw := errors.New("connection reset")
	tr := Transient("apply delta", raw)
	assert.Equal(t, KindTransient, KindOf(tr))
	assert.ErrorIs(t, tr, raw)
	assert.Nil(t, Transient("noop", nil))
}

func TestUnknownErrorsAreInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestForbiddenIsItsOwnKind(t *testing.T) {
	err := Forbidden("create admin link", "admin role required")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrValidation)
}
