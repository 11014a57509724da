package v1

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/duynhne/user-service/internal/core/domain"
	"github.com/duynhne/user-service/middleware"
)

// UserService implements the business rules for user management and wishlists
type UserService struct {
	repo      domain.UserRepository
	hasher    domain.PasswordHasher
	publisher domain.EventPublisher
	logger    *zap.Logger
	defaults  domain.QueryDefaults
}

// NewUserService creates a new user service
func NewUserService(
	repo domain.UserRepository,
	hasher domain.PasswordHasher,
	publisher domain.EventPublisher,
	logger *zap.Logger,
	defaults domain.QueryDefaults,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		publisher: publisher,
		logger:    logger,
		defaults:  defaults,
	}
}

// UserPage is one page of the user list together with pagination totals
type UserPage struct {
	Users      []map[string]any
	Page       int
	PerPage    int
	Total      int64
	TotalPages int64
}

// ListUsers applies field selection, filtering, sorting and pagination from raw query params.
// The total is counted with filters only, so TotalPages does not depend on the current page.
func (s *UserService) ListUsers(ctx context.Context, params url.Values) (page *UserPage, err error) {
	ctx, span := middleware.StartSpan(ctx, "user.list", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()
	defer func() { middleware.RecordUserOperation("list", err) }()

	q, err := domain.ParseListQuery(params, s.defaults)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("query.page", q.Page),
		attribute.Int("query.limit", q.Limit),
		attribute.Int("query.filters", len(q.Filters)),
	)

	users, err := s.repo.List(ctx, q)
	if err != nil {
		middleware.RecordError(span, err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	total, err := s.repo.Count(ctx, q.Filters)
	if err != nil {
		middleware.RecordError(span, err)
		return nil, fmt.Errorf("count users: %w", err)
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, q.Project(u))
	}

	span.SetAttributes(attribute.Int64("users.total", total))
	return &UserPage{
		Users:      out,
		Page:       q.Page,
		PerPage:    q.Limit,
		Total:      total,
		TotalPages: q.TotalPages(total),
	}, nil
}

// CreateUser hashes the password and stores a new user.
// Duplicate username or phone number fails with ErrUsernameTaken / ErrPhoneNumberTaken and nothing is written.
func (s *UserService) CreateUser(ctx context.Context, req domain.CreateUserRequest) (user *domain.User, err error) {
	ctx, span := middleware.StartSpan(ctx, "user.create", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", req.Username),
	))
	defer span.End()
	defer func() { middleware.RecordUserOperation("create", err) }()

	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		middleware.RecordError(span, err)
		return nil, fmt.Errorf("create user %q: %w", req.Username, err)
	}

	user, err = s.repo.Create(ctx, &domain.User{
		Firstname:   req.Firstname,
		Lastname:    req.Lastname,
		Username:    req.Username,
		Password:    hash,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		Role:        role,
		Wishlist:    []string{},
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("user.created", false))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("user.id", user.ID),
		attribute.Bool("user.created", true),
	)
	s.publish(ctx, domain.Event{Type: domain.EventUserCreated, UserID: user.ID})
	return user, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "user.get", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", id),
	))
	defer span.End()

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.SetAttributes(attribute.Bool("user.found", false))
		return nil, err
	}
	span.SetAttributes(attribute.Bool("user.found", true))
	return user, nil
}

// EditUser overwrites only the fields present in req.
// Keeping one's own username or phone number is not a conflict.
func (s *UserService) EditUser(ctx context.Context, id string, req domain.EditUserRequest) (user *domain.User, err error) {
	ctx, span := middleware.StartSpan(ctx, "user.edit", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", id),
	))
	defer span.End()
	defer func() { middleware.RecordUserOperation("edit", err) }()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			middleware.RecordError(span, err)
			return nil, fmt.Errorf("edit user %q: %w", id, err)
		}
		req.Password = &hash
	}
	req.Apply(current)

	user, err = s.repo.Update(ctx, current)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.Event{Type: domain.EventUserUpdated, UserID: user.ID})
	return user, nil
}

// RemoveUser deletes a user and returns its last known state
func (s *UserService) RemoveUser(ctx context.Context, id string) (user *domain.User, err error) {
	ctx, span := middleware.StartSpan(ctx, "user.remove", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", id),
	))
	defer span.End()
	defer func() { middleware.RecordUserOperation("remove", err) }()

	user, err = s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.Event{Type: domain.EventUserDeleted, UserID: user.ID})
	return user, nil
}

// AddToWishlist adds productID to the user's wishlist; adding an existing product is a no-op
func (s *UserService) AddToWishlist(ctx context.Context, userID, productID string) (wishlist []string, err error) {
	ctx, span := middleware.StartSpan(ctx, "wishlist.add", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", userID),
		attribute.String("product.id", productID),
	))
	defer span.End()
	defer func() { middleware.RecordUserOperation("wishlist_add", err) }()

	productID, err = normalizeProductID(productID)
	if err != nil {
		return nil, err
	}

	wishlist, err = s.repo.AddToWishlist(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	wishlist = nonNil(wishlist)

	middleware.ObserveWishlistSize(len(wishlist))
	span.SetAttributes(attribute.Int("wishlist.size", len(wishlist)))
	s.publish(ctx, domain.Event{Type: domain.EventWishlistUpdated, UserID: userID, ProductID: productID, Wishlist: wishlist})
	return wishlist, nil
}

// RemoveFromWishlist removes productID from the user's wishlist; removing an absent product is a no-op
func (s *UserService) RemoveFromWishlist(ctx context.Context, userID, productID string) (wishlist []string, err error) {
	ctx, span := middleware.StartSpan(ctx, "wishlist.remove", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", userID),
		attribute.String("product.id", productID),
	))
	defer span.End()
	defer func() { middleware.RecordUserOperation("wishlist_remove", err) }()

	productID, err = normalizeProductID(productID)
	if err != nil {
		return nil, err
	}

	wishlist, err = s.repo.RemoveFromWishlist(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	wishlist = nonNil(wishlist)

	middleware.ObserveWishlistSize(len(wishlist))
	span.SetAttributes(attribute.Int("wishlist.size", len(wishlist)))
	s.publish(ctx, domain.Event{Type: domain.EventWishlistUpdated, UserID: userID, ProductID: productID, Wishlist: wishlist})
	return wishlist, nil
}

// GetWishlist returns the user's wishlist
func (s *UserService) GetWishlist(ctx context.Context, userID string) ([]string, error) {
	ctx, span := middleware.StartSpan(ctx, "wishlist.get", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("user.id", userID),
	))
	defer span.End()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return nonNil(user.Wishlist), nil
}

// publish is best effort: the write already committed, so failures are only logged.
func (s *UserService) publish(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event", event.Type),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
	}
}

func normalizeProductID(productID string) (string, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" || len(productID) > domain.MaxProductIDLength {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidProductID, productID)
	}
	return productID, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
