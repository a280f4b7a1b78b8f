package hierarchy

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfcycle/internal/domain/apperr"
)

type stubTx struct {
	pgx.Tx
}

type fakeStore struct {
	edges   []Edge
	locked  bool
	loadErr error
}

func (f *fakeStore) LockTx(context.Context, pgx.Tx) error {
	f.locked = true
	return nil
}

func (f *fakeStore) EdgesTx(context.Context, pgx.Tx) ([]Edge, error) {
	return f.edges, f.loadErr
}

func TestGuardRejectsCycle(t *testing.T) {
	store := &fakeStore{edges: []Edge{{EmployeeID: "M"}, {EmployeeID: "E", ManagerID: "M"}}}
	guard := NewGuard(store)

	err := guard.CheckTx(context.Background(), stubTx{}, "M", "E")
	require.Error(t, err)
	assert.True(t, store.locked)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, appErr.Kind)
	assert.Equal(t, "hierarchy_cycle", appErr.Code)
}

func TestGuardRejectsSelfManagementWithoutLoading(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("should not load")}
	guard := NewGuard(store)

	err := guard.CheckTx(context.Background(), stubTx{}, "E", "E")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "self_management", appErr.Code)
	assert.False(t, store.locked)
}

func TestGuardRejectsUnknownManager(t *testing.T) {
	guard := NewGuard(&fakeStore{edges: []Edge{{EmployeeID: "E"}}})

	err := guard.CheckTx(context.Background(), stubTx{}, "E", "ghost")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestGuardAllowsHealthyReassignment(t *testing.T) {
	guard := NewGuard(&fakeStore{edges: []Edge{{EmployeeID: "A"}, {EmployeeID: "B"}, {EmployeeID: "C", ManagerID: "A"}}})

	assert.NoError(t, guard.CheckTx(context.Background(), stubTx{}, "C", "B"))
	assert.NoError(t, guard.CheckTx(context.Background(), stubTx{}, "C", ""))
}

func TestGuardPropagatesLoadFailure(t *testing.T) {
	guard := NewGuard(&fakeStore{loadErr: errors.New("db down")})

	err := guard.CheckTx(context.Background(), stubTx{}, "C", "B")
	require.Error(t, err)
	_, ok := apperr.KindOf(err)
	assert.False(t, ok)
}
