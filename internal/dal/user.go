package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UserModel handles staff account lookups
type UserModel struct {
	store Store
}

// NewUserModel creates a new user model instance
func NewUserModel(store Store) *UserModel {
	return &UserModel{store: store}
}

// Create stores a new user account
func (um *UserModel) Create(ctx context.Context, u *User) error {
	if u.Name == "" || u.Email == "" || u.PasswordHash == "" {
		return fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	switch u.Role {
	case RoleAdmin, RoleDoctor, RoleReceptionist:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrValidation, u.Role)
	}

	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()

	if err := um.store.Insert(ctx, KindUser, u.ID, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	log.Info().Str("user", u.ID).Str("role", u.Role).Msg("User created")
	return nil
}

// GetByID retrieves a user by ID
func (um *UserModel) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := um.store.Get(ctx, KindUser, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail retrieves a user by email address
func (um *UserModel) GetByEmail(ctx context.Context, email string) (*User, error) {
	docs, err := um.store.Find(ctx, KindUser, Query{
		Filter: Filter{All: []Cond{{Field: "email", Op: OpEq, Value: email}}},
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	var u User
	if err := json.Unmarshal(docs[0].Body, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// List retrieves users, optionally filtered by role. Callers may pass
// the role in any casing.
func (um *UserModel) List(ctx context.Context, role string) ([]User, error) {
	var filter Filter
	if role != "" {
		filter.All = []Cond{{Field: "role", Op: OpEq, Value: strings.ToLower(role)}}
	}

	docs, err := um.store.Find(ctx, KindUser, Query{
		Filter: filter,
		Sort:   Sort{Field: "name"},
	})
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(docs))
	for _, doc := range docs {
		var u User
		if err := json.Unmarshal(doc.Body, &u); err != nil {
			log.Warn().Err(err).Str("id", doc.ID).Msg("Failed to decode user")
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// IsDoctor reports whether the id resolves to an active user with the
// doctor role
func (um *UserModel) IsDoctor(ctx context.Context, id string) (bool, error) {
	u, err := um.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Role == RoleDoctor && u.IsActive, nil
}
