package psql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/user-service/internal/core/domain"
)

// Unique constraint names declared in migrations/00001_create_users.sql.
const (
	constraintUsername    = "users_username_key"
	constraintPhoneNumber = "users_phone_number_key"

	uniqueViolation = "23505"
)

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// List returns one page of users honoring filters, sort and pagination.
func (r *UserRepository) List(ctx context.Context, q domain.ListQuery) ([]domain.User, error) {
	query, args, err := buildListQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// Count returns the number of users matching filters, ignoring pagination.
func (r *UserRepository) Count(ctx context.Context, filters []domain.Filter) (int64, error) {
	query, args, err := buildCountQuery(filters)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get user %q: %w", id, domain.ErrUserNotFound)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get user %q", id), err)
	}
	return u, nil
}

// Create inserts a new user. Duplicate username or phone number is reported by the
// unique constraints, so there is no separate existence check.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (id, firstname, lastname, username, password, phone_number, address, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRow(ctx, query,
		uuid.NewString(),
		u.Firstname,
		u.Lastname,
		u.Username,
		u.Password,
		u.PhoneNumber,
		u.Address,
		string(u.Role),
	))
	if err != nil {
		return nil, mapError(fmt.Sprintf("insert user %q", u.Username), err)
	}
	return created, nil
}

// Update overwrites the editable attributes of an existing user.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	if _, err := uuid.Parse(u.ID); err != nil {
		return nil, fmt.Errorf("update user %q: %w", u.ID, domain.ErrUserNotFound)
	}

	query := `
		UPDATE users
		SET firstname = $2, lastname = $3, username = $4, password = $5,
		    phone_number = $6, address = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	updated, err := scanUser(r.db.QueryRow(ctx, query,
		u.ID,
		u.Firstname,
		u.Lastname,
		u.Username,
		u.Password,
		u.PhoneNumber,
		u.Address,
	))
	if err != nil {
		return nil, mapError(fmt.Sprintf("update user %q", u.ID), err)
	}
	return updated, nil
}

// Delete removes a user and returns the deleted row.
func (r *UserRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("delete user %q: %w", id, domain.ErrUserNotFound)
	}

	query := `DELETE FROM users WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("delete user %q", id), err)
	}
	return u, nil
}

// AddToWishlist appends productID in a single statement, so concurrent adds of the
// same product cannot produce duplicates.
func (r *UserRepository) AddToWishlist(ctx context.Context, userID, productID string) ([]string, error) {
	query := `
		UPDATE users
		SET wishlist = CASE WHEN $2::text = ANY(wishlist) THEN wishlist ELSE array_append(wishlist, $2::text) END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING wishlist`
	return r.updateWishlist(ctx, "add to wishlist", query, userID, productID)
}

// RemoveFromWishlist drops every occurrence of productID.
func (r *UserRepository) RemoveFromWishlist(ctx context.Context, userID, productID string) ([]string, error) {
	query := `
		UPDATE users
		SET wishlist = array_remove(wishlist, $2::text), updated_at = NOW()
		WHERE id = $1
		RETURNING wishlist`
	return r.updateWishlist(ctx, "remove from wishlist", query, userID, productID)
}

func (r *UserRepository) updateWishlist(ctx context.Context, op, query, userID, productID string) ([]string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%s of %q: %w", op, userID, domain.ErrUserNotFound)
	}

	var wishlist []string
	if err := r.db.QueryRow(ctx, query, userID, productID).Scan(&wishlist); err != nil {
		return nil, mapError(fmt.Sprintf("%s of %q", op, userID), err)
	}
	if wishlist == nil {
		wishlist = []string{}
	}
	return wishlist, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.Firstname,
		&u.Lastname,
		&u.Username,
		&u.Password,
		&u.PhoneNumber,
		&u.Address,
		&role,
		&u.Wishlist,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if u.Wishlist == nil {
		u.Wishlist = []string{}
	}
	return &u, nil
}

// mapError translates pgx errors into domain sentinels.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrUserNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case constraintUsername:
			return fmt.Errorf("%s: %w", op, domain.ErrUsernameTaken)
		case constraintPhoneNumber:
			return fmt.Errorf("%s: %w", op, domain.ErrPhoneNumberTaken)
		default:
			return fmt.Errorf("%s: %w", op, domain.ErrUserExists)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
