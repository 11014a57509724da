package domain

import "context"

// UserRepository defines the interface for user data access.
//
// Uniqueness of Username and PhoneNumber is enforced by the implementation on write:
// Create and Update return ErrUsernameTaken or ErrPhoneNumberTaken instead of relying on
// a prior existence check. Lookups of unknown or malformed ids return ErrUserNotFound.
type UserRepository interface {
	List(ctx context.Context, q ListQuery) ([]User, error)
	Count(ctx context.Context, filters []Filter) (int64, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) (*User, error)
	Update(ctx context.Context, u *User) (*User, error)
	Delete(ctx context.Context, id string) (*User, error)

	// AddToWishlist appends productID unless already present and returns the wishlist.
	AddToWishlist(ctx context.Context, userID, productID string) ([]string, error)
	// RemoveFromWishlist drops productID if present and returns the wishlist.
	RemoveFromWishlist(ctx context.Context, userID, productID string) ([]string, error)
}

// Event subjects published after successful writes.
const (
	EventUserCreated     = "user.created"
	EventUserUpdated     = "user.updated"
	EventUserDeleted     = "user.deleted"
	EventWishlistUpdated = "user.wishlist.updated"
)

// Event is a domain notification emitted by the logic layer.
type Event struct {
	Type      string   `json:"type"`
	UserID    string   `json:"user_id"`
	ProductID string   `json:"product_id,omitempty"`
	Wishlist  []string `json:"wishlist,omitempty"`
}

// EventPublisher delivers domain events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// PasswordHasher hashes plaintext passwords before they are persisted.
type PasswordHasher interface {
	Hash(password string) (string, error)
}
