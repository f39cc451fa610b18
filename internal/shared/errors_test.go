package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnknownUsersErrorSortsIDs(t *testing.T) {
	err := &UnknownUsersError{IDs: []int64{42, 7, 19}}
	require.Equal(t, "unknown users: 7, 19, 42", err.Error())
	// Error() must not reorder the caller's slice.
	require.Equal(t, []int64{42, 7, 19}, err.IDs)
}

func TestUnknownUsersErrorMatchesNotFound(t *testing.T) {
	var err error = &UnknownUsersError{IDs: []int64{1}}
	require.ErrorIs(t, err, ErrNotFound)
	require.NotErrorIs(t, err, ErrValidation)

	var unknown *UnknownUsersError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, []int64{1}, unknown.IDs)
}
