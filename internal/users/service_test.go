package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barpos/barpos/internal/shared"
)

type memoryUserRepo struct {
	users map[int64]User
}

func (r *memoryUserRepo) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) FindUsers(ctx context.Context, ids []int64) (map[int64]User, error) {
	out := make(map[int64]User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *memoryUserRepo) ListUsers(ctx context.Context, filter Filter, page shared.Pagination) ([]User, int, error) {
	return nil, 0, nil
}

func (r *memoryUserRepo) ListUserIDsByTypes(ctx context.Context, types []UserType) ([]int64, error) {
	var out []int64
	for id := range r.users {
		out = append(out, id)
	}
	return out, nil
}

func (r *memoryUserRepo) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	return User{}, nil
}

func (r *memoryUserRepo) UpdateUser(ctx context.Context, id int64, input UpdateUserInput) (User, error) {
	return User{}, nil
}

func (r *memoryUserRepo) DeleteUser(ctx context.Context, id int64) error {
	return nil
}

func TestVerifyUsersExistCollectsAllMissing(t *testing.T) {
	repo := &memoryUserRepo{users: map[int64]User{
		1: {ID: 1, Email: "one@bar.local", Type: TypeMember, Active: true},
		2: {ID: 2, Email: "two@bar.local", Type: TypeMember, Active: true},
	}}
	service := NewService(repo)

	_, err := service.VerifyUsersExist(context.Background(), []int64{1, 9, 2, 7})
	require.Error(t, err)
	require.ErrorIs(t, err, shared.ErrNotFound)

	var unknown *shared.UnknownUsersError
	require.ErrorAs(t, err, &unknown)
	require.ElementsMatch(t, []int64{7, 9}, unknown.IDs)
}

func TestVerifyUsersExistFullBatch(t *testing.T) {
	repo := &memoryUserRepo{users: map[int64]User{
		1: {ID: 1, Type: TypeMember, Active: true},
		2: {ID: 2, Type: TypeOrgan, Active: true},
	}}
	service := NewService(repo)

	found, err := service.VerifyUsersExist(context.Background(), []int64{2, 1})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, TypeOrgan, found[2].Type)
}
