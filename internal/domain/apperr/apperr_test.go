package apperr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := errors.Wrap(Conflict("hierarchy_cycle", "manager assignment would create a cycle"), "update user")

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, kind)
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "hierarchy_cycle", appErr.Code)
}

func TestTransactionKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transaction("delete user", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "delete user: connection reset", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("boom"))
	assert.False(t, ok)
}
