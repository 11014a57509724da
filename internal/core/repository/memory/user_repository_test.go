package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/user-service/internal/core/domain"
)

func seed(t *testing.T, r *UserRepository, username, phone string, role domain.Role) *domain.User {
	t.Helper()
	u, err := r.Create(context.Background(), &domain.User{
		Firstname:   "First " + username,
		Lastname:    "Last",
		Username:    username,
		PhoneNumber: phone,
		Role:        role,
	})
	require.NoError(t, err)
	return u
}

func TestCreateEnforcesUniqueness(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	seed(t, r, "alice", "123", domain.RoleUser)

	_, err := r.Create(ctx, &domain.User{Username: "alice", PhoneNumber: "456"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	_, err = r.Create(ctx, &domain.User{Username: "bob", PhoneNumber: "123"})
	assert.ErrorIs(t, err, domain.ErrPhoneNumberTaken)

	n, err := r.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestConcurrentCreateSameUsername(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Create(ctx, &domain.User{Username: "race", PhoneNumber: fmt.Sprintf("%03d", i)})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	}
	assert.Equal(t, 1, ok)
}

func TestUpdateKeepsOwnUniqueValues(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	alice := seed(t, r, "alice", "123", domain.RoleUser)
	seed(t, r, "bob", "456", domain.RoleUser)

	alice.Firstname = "Alicia"
	updated, err := r.Update(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.Firstname)
	assert.Equal(t, "alice", updated.Username)

	alice.Username = "bob"
	_, err = r.Update(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	alice.Username = "alice2"
	_, err = r.Update(ctx, alice)
	require.NoError(t, err)

	// the old username is released
	seed(t, r, "alice", "789", domain.RoleUser)
}

func TestDeleteReturnsLastState(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	alice := seed(t, r, "alice", "123", domain.RoleUser)

	deleted, err := r.Delete(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", deleted.Username)

	_, err = r.GetByID(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = r.Delete(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestWishlist(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	alice := seed(t, r, "alice", "123", domain.RoleUser)

	list, err := r.AddToWishlist(ctx, alice.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, list)

	list, err = r.AddToWishlist(ctx, alice.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, list)

	list, err = r.AddToWishlist(ctx, alice.ID, "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, list)

	list, err = r.RemoveFromWishlist(ctx, alice.ID, "missing")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, list)

	list, err = r.RemoveFromWishlist(ctx, alice.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, list)

	_, err = r.AddToWishlist(ctx, "nobody", "p1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListFilterSortPaginate(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	seed(t, r, "carol", "3", domain.RoleUser)
	seed(t, r, "alice", "1", domain.RoleAdmin)
	seed(t, r, "bob", "2", domain.RoleUser)
	seed(t, r, "dave", "4", domain.RoleUser)

	q := domain.ListQuery{
		Page:    1,
		Limit:   2,
		Filters: []domain.Filter{{Field: "role", Op: domain.OpEq, Value: "USER"}},
		Sort:    []domain.SortField{{Field: "username"}},
	}
	page, err := r.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "bob", page[0].Username)
	assert.Equal(t, "carol", page[1].Username)

	q.Page = 2
	page, err = r.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "dave", page[0].Username)

	q.Page = 3
	page, err = r.List(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, page)

	total, err := r.Count(ctx, q.Filters)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	newest, err := r.List(ctx, domain.ListQuery{Page: 1, Limit: 1, Sort: domain.DefaultSort})
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, "dave", newest[0].Username)

	gt, err := r.Count(ctx, []domain.Filter{{Field: "phoneNumber", Op: domain.OpGt, Value: "2"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), gt)
}

func TestListHugePageIsEmpty(t *testing.T) {
	r := NewUserRepository()
	seed(t, r, "alice", "1", domain.RoleUser)

	page, err := r.List(context.Background(), domain.ListQuery{Page: math.MaxInt, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}
