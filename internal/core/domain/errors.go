package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for user operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates a unique attribute is already owned by another user.
	// HTTP Status: 409 Conflict
	ErrUserExists = errors.New("user already exists")

	// ErrUsernameTaken is the ErrUserExists variant for the username attribute.
	ErrUsernameTaken = fmt.Errorf("%w: username", ErrUserExists)

	// ErrPhoneNumberTaken is the ErrUserExists variant for the phoneNumber attribute.
	ErrPhoneNumberTaken = fmt.Errorf("%w: phoneNumber", ErrUserExists)

	// ErrInvalidQuery indicates malformed list query parameters.
	// HTTP Status: 400 Bad Request
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidProductID indicates an empty or oversized product identifier.
	// HTTP Status: 400 Bad Request
	ErrInvalidProductID = errors.New("invalid product id")

	// ErrPasswordTooLong indicates a password longer than MaxPasswordBytes.
	// HTTP Status: 400 Bad Request
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

	// ErrUnauthorized indicates the user is not authorized to perform the operation.
	// HTTP Status: 403 Forbidden
	ErrUnauthorized = errors.New("unauthorized access")
)
