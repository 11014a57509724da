package v1

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/user-service/internal/core/domain"
	"github.com/duynhne/user-service/internal/core/repository/memory"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService() (*UserService, *memory.UserRepository, *recordingPublisher) {
	repo := memory.NewUserRepository()
	pub := &recordingPublisher{}
	return NewUserService(repo, plainHasher{}, pub, nil, domain.DefaultQueryDefaults), repo, pub
}

func createReq(username, phone string) domain.CreateUserRequest {
	return domain.CreateUserRequest{
		Firstname:   "First",
		Lastname:    "Last",
		Username:    username,
		Password:    "password123",
		PhoneNumber: phone,
		Address:     "1 Main St",
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreateUser(t *testing.T) {
	svc, repo, pub := newTestService()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, createReq("alice", "123"))
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, "hashed:password123", user.Password)
	assert.Equal(t, []string{}, user.Wishlist)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, []string{domain.EventUserCreated}, pub.types())
}

func TestCreateUserConflictsWriteNothing(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, createReq("alice", "123"))
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, createReq("alice", "456"))
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	_, err = svc.CreateUser(ctx, createReq("bob", "123"))
	assert.ErrorIs(t, err, domain.ErrPhoneNumberTaken)
	assert.ErrorIs(t, err, domain.ErrUserExists)

	total, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestEditUser(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, createReq("alice", "123"))
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, createReq("bob", "456"))
	require.NoError(t, err)

	t.Run("omitted unique fields stay unchanged", func(t *testing.T) {
		got, err := svc.EditUser(ctx, alice.ID, domain.EditUserRequest{
			Firstname: ptr("Alicia"),
			Address:   ptr("2 Side St"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Alicia", got.Firstname)
		assert.Equal(t, "2 Side St", got.Address)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, "123", got.PhoneNumber)
	})

	t.Run("own username is not a conflict", func(t *testing.T) {
		_, err := svc.EditUser(ctx, alice.ID, domain.EditUserRequest{Username: ptr("alice"), PhoneNumber: ptr("123")})
		assert.NoError(t, err)
	})

	t.Run("other user's username conflicts", func(t *testing.T) {
		_, err := svc.EditUser(ctx, alice.ID, domain.EditUserRequest{Username: ptr("bob")})
		assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	})

	t.Run("other user's phone conflicts", func(t *testing.T) {
		_, err := svc.EditUser(ctx, alice.ID, domain.EditUserRequest{PhoneNumber: ptr("456")})
		assert.ErrorIs(t, err, domain.ErrPhoneNumberTaken)
	})

	t.Run("password is rehashed", func(t *testing.T) {
		got, err := svc.EditUser(ctx, alice.ID, domain.EditUserRequest{Password: ptr("newsecret1")})
		require.NoError(t, err)
		assert.Equal(t, "hashed:newsecret1", got.Password)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := svc.EditUser(ctx, "missing", domain.EditUserRequest{Firstname: ptr("x")})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	assert.Contains(t, pub.types(), domain.EventUserUpdated)
}

func TestRemoveUser(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, createReq("alice", "123"))
	require.NoError(t, err)

	removed, err := svc.RemoveUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", removed.Username)

	_, err = svc.GetUser(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.RemoveUser(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.Equal(t, []string{domain.EventUserCreated, domain.EventUserDeleted}, pub.types())
}

func TestWishlist(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, createReq("alice", "123"))
	require.NoError(t, err)

	list, err := svc.AddToWishlist(ctx, alice.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, list)

	list, err = svc.AddToWishlist(ctx, alice.ID, " p1 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, list, "adding twice keeps one occurrence")

	list, err = svc.AddToWishlist(ctx, alice.ID, "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, list)

	list, err = svc.RemoveFromWishlist(ctx, alice.ID, "absent")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, list, "removing an absent product is a no-op")

	list, err = svc.RemoveFromWishlist(ctx, alice.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, list)

	list, err = svc.GetWishlist(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, list)

	list, err = svc.RemoveFromWishlist(ctx, alice.ID, "p2")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestWishlistErrors(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddToWishlist(ctx, "missing", "p1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = svc.RemoveFromWishlist(ctx, "missing", "p1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = svc.GetWishlist(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.AddToWishlist(ctx, "missing", "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidProductID)
	_, err = svc.AddToWishlist(ctx, "missing", strings.Repeat("x", domain.MaxProductIDLength+1))
	assert.ErrorIs(t, err, domain.ErrInvalidProductID)
}

func TestListUsers(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		req := createReq(fmt.Sprintf("user%d", i), fmt.Sprintf("10%d", i))
		if i%3 == 0 {
			req.Role = domain.RoleAdmin
		}
		_, err := svc.CreateUser(ctx, req)
		require.NoError(t, err)
	}

	t.Run("total pages independent of page", func(t *testing.T) {
		for page := 1; page <= 3; page++ {
			got, err := svc.ListUsers(ctx, url.Values{"limit": {"3"}, "page": {fmt.Sprint(page)}})
			require.NoError(t, err)
			assert.EqualValues(t, 7, got.Total)
			assert.EqualValues(t, 3, got.TotalPages)
			assert.Equal(t, 3, got.PerPage)
			assert.Equal(t, page, got.Page)
		}
		last, err := svc.ListUsers(ctx, url.Values{"limit": {"3"}, "page": {"3"}})
		require.NoError(t, err)
		assert.Len(t, last.Users, 1)
	})

	t.Run("filter applies to count", func(t *testing.T) {
		got, err := svc.ListUsers(ctx, url.Values{"role": {"ADMIN"}, "limit": {"2"}})
		require.NoError(t, err)
		assert.EqualValues(t, 3, got.Total)
		assert.EqualValues(t, 2, got.TotalPages)
		assert.Len(t, got.Users, 2)
	})

	t.Run("fields projection", func(t *testing.T) {
		got, err := svc.ListUsers(ctx, url.Values{"fields": {"username"}, "sort": {"username"}, "limit": {"1"}})
		require.NoError(t, err)
		require.Len(t, got.Users, 1)
		assert.Equal(t, "user0", got.Users[0]["username"])
		assert.Contains(t, got.Users[0], "id")
		assert.NotContains(t, got.Users[0], "phoneNumber")
	})

	t.Run("bad limit", func(t *testing.T) {
		_, err := svc.ListUsers(ctx, url.Values{"limit": {"0"}})
		assert.ErrorIs(t, err, domain.ErrInvalidQuery)
	})
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	repo := memory.NewUserRepository()
	pub := &recordingPublisher{err: errors.New("nats down")}
	svc := NewUserService(repo, plainHasher{}, pub, nil, domain.DefaultQueryDefaults)

	user, err := svc.CreateUser(context.Background(), createReq("alice", "123"))
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Len(t, pub.types(), 1)
}
