package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates a malformed caller-supplied argument.
	ErrValidation = errors.New("validation failed")
)

// UnknownUsersError reports every referenced user id that does not exist.
// Batch operations collect all offending ids before returning.
type UnknownUsersError struct {
	IDs []int64
}

func (e *UnknownUsersError) Error() string {
	sorted := append([]int64(nil), e.IDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	ids := make([]string, len(sorted))
	for i, id := range sorted {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return "unknown users: " + strings.Join(ids, ", ")
}

// Is lets errors.Is(err, ErrNotFound) match unknown-user batches.
func (e *UnknownUsersError) Is(target error) bool {
	return target == ErrNotFound
}
