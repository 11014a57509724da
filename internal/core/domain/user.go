package domain

import "time"

// Role is the authorization role attached to a user account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the persisted account record.
// Password holds the bcrypt hash and is never serialized.
type User struct {
	ID          string    `json:"id"`
	Firstname   string    `json:"firstname"`
	Lastname    string    `json:"lastname"`
	Username    string    `json:"username"`
	Password    string    `json:"-"`
	PhoneNumber string    `json:"phoneNumber"`
	Address     string    `json:"address"`
	Role        Role      `json:"role"`
	Wishlist    []string  `json:"wishlist"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasProduct reports whether productID is already in the wishlist.
func (u *User) HasProduct(productID string) bool {
	for _, id := range u.Wishlist {
		if id == productID {
			return true
		}
	}
	return false
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// CreateUserRequest is the create-user payload (validate(create-schema)).
type CreateUserRequest struct {
	Firstname   string `json:"firstname" binding:"required,max=50"`
	Lastname    string `json:"lastname" binding:"required,max=50"`
	Username    string `json:"username" binding:"required,min=3,max=30"`
	Password    string `json:"password" binding:"required,min=8,max=72,pwbytes"`
	PhoneNumber string `json:"phoneNumber" binding:"required,phone"`
	Address     string `json:"address" binding:"max=255"`
	Role        Role   `json:"role" binding:"omitempty,role"`
}

// EditUserRequest is the edit-user payload (validate(edit-schema)).
// Nil fields leave the stored value unchanged.
type EditUserRequest struct {
	Firstname   *string `json:"firstname" binding:"omitempty,max=50"`
	Lastname    *string `json:"lastname" binding:"omitempty,max=50"`
	Username    *string `json:"username" binding:"omitempty,min=3,max=30"`
	Password    *string `json:"password" binding:"omitempty,min=8,max=72,pwbytes"`
	PhoneNumber *string `json:"phoneNumber" binding:"omitempty,phone"`
	Address     *string `json:"address" binding:"omitempty,max=255"`
}

// Apply overwrites the fields of u that are set in req.
// Password is expected to be hashed by the caller before Apply.
func (req EditUserRequest) Apply(u *User) {
	if req.Firstname != nil {
		u.Firstname = *req.Firstname
	}
	if req.Lastname != nil {
		u.Lastname = *req.Lastname
	}
	if req.Username != nil {
		u.Username = *req.Username
	}
	if req.Password != nil {
		u.Password = *req.Password
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = *req.PhoneNumber
	}
	if req.Address != nil {
		u.Address = *req.Address
	}
}

// WishlistRequest is the optional body of the wishlist endpoints.
// UserID is honored only when the caller is an ADMIN.
type WishlistRequest struct {
	UserID string `json:"userId"`
}

// MaxProductIDLength bounds the opaque product identifier stored in a wishlist.
const MaxProductIDLength = 64
