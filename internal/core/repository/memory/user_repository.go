// Package memory provides an in-process domain.UserRepository.
// It backs DB_DRIVER=memory for local runs and serves as the store in tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/duynhne/user-service/internal/core/domain"
)

// UserRepository implements domain.UserRepository on top of maps guarded by a mutex.
// Unique indexes on username and phoneNumber are checked inside the same critical
// section as the write, so concurrent creates cannot both succeed.
type UserRepository struct {
	mu         sync.RWMutex
	users      map[string]*domain.User
	byUsername map[string]string
	byPhone    map[string]string
	lastStamp  time.Time
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:      make(map[string]*domain.User),
		byUsername: make(map[string]string),
		byPhone:    make(map[string]string),
	}
}

// List returns one page of users matching q.
func (r *UserRepository) List(ctx context.Context, q domain.ListQuery) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		if matches(u, q.Filters) {
			matched = append(matched, clone(u))
		}
	}
	sortUsers(matched, q.Sort)

	start := q.Offset()
	if start >= len(matched) {
		return []domain.User{}, nil
	}
	end := start + q.Limit
	if q.Limit <= 0 || end > len(matched) || end < start {
		end = len(matched)
	}
	return matched[start:end], nil
}

// Count returns the number of users matching filters.
func (r *UserRepository) Count(ctx context.Context, filters []domain.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, u := range r.users {
		if matches(u, filters) {
			n++
		}
	}
	return n, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("get user %q: %w", id, domain.ErrUserNotFound)
	}
	out := clone(u)
	return &out, nil
}

// Create stores a new user, assigning its ID and timestamps.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique("", u); err != nil {
		return nil, fmt.Errorf("create user %q: %w", u.Username, err)
	}

	stored := clone(u)
	stored.ID = uuid.NewString()
	stored.CreatedAt = r.stamp()
	stored.UpdatedAt = stored.CreatedAt
	if stored.Wishlist == nil {
		stored.Wishlist = []string{}
	}

	r.users[stored.ID] = &stored
	r.byUsername[stored.Username] = stored.ID
	r.byPhone[stored.PhoneNumber] = stored.ID

	out := clone(&stored)
	return &out, nil
}

// Update overwrites the mutable attributes of an existing user.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[u.ID]
	if !ok {
		return nil, fmt.Errorf("update user %q: %w", u.ID, domain.ErrUserNotFound)
	}
	if err := r.checkUnique(u.ID, u); err != nil {
		return nil, fmt.Errorf("update user %q: %w", u.ID, err)
	}

	delete(r.byUsername, current.Username)
	delete(r.byPhone, current.PhoneNumber)

	current.Firstname = u.Firstname
	current.Lastname = u.Lastname
	current.Username = u.Username
	current.Password = u.Password
	current.PhoneNumber = u.PhoneNumber
	current.Address = u.Address
	current.UpdatedAt = r.stamp()

	r.byUsername[current.Username] = current.ID
	r.byPhone[current.PhoneNumber] = current.ID

	out := clone(current)
	return &out, nil
}

// Delete removes a user and returns its last known state.
func (r *UserRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("delete user %q: %w", id, domain.ErrUserNotFound)
	}
	delete(r.users, id)
	delete(r.byUsername, u.Username)
	delete(r.byPhone, u.PhoneNumber)

	out := clone(u)
	return &out, nil
}

// AddToWishlist appends productID unless the user already has it.
func (r *UserRepository) AddToWishlist(ctx context.Context, userID, productID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("add to wishlist of %q: %w", userID, domain.ErrUserNotFound)
	}
	if !u.HasProduct(productID) {
		u.Wishlist = append(u.Wishlist, productID)
		u.UpdatedAt = r.stamp()
	}
	return slices.Clone(u.Wishlist), nil
}

// RemoveFromWishlist drops productID from the user's wishlist.
func (r *UserRepository) RemoveFromWishlist(ctx context.Context, userID, productID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("remove from wishlist of %q: %w", userID, domain.ErrUserNotFound)
	}
	u.Wishlist = slices.DeleteFunc(u.Wishlist, func(id string) bool { return id == productID })
	u.UpdatedAt = r.stamp()
	return slices.Clone(u.Wishlist), nil
}

// checkUnique must be called with r.mu held. selfID is excluded from the check.
func (r *UserRepository) checkUnique(selfID string, u *domain.User) error {
	if owner, ok := r.byUsername[u.Username]; ok && owner != selfID {
		return domain.ErrUsernameTaken
	}
	if owner, ok := r.byPhone[u.PhoneNumber]; ok && owner != selfID {
		return domain.ErrPhoneNumberTaken
	}
	return nil
}

// stamp returns a strictly increasing timestamp so createdAt ordering follows insertion order.
func (r *UserRepository) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(r.lastStamp) {
		now = r.lastStamp.Add(time.Microsecond)
	}
	r.lastStamp = now
	return now
}

func clone(u *domain.User) domain.User {
	out := *u
	out.Wishlist = slices.Clone(u.Wishlist)
	if out.Wishlist == nil {
		out.Wishlist = []string{}
	}
	return out
}
