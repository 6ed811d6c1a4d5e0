package auth

import (
	"context"
	"fmt"

	"github.com/occhealth/occhealth/internal/platform/apperr"
)

// Owned is a stored record carrying the id of the user that created it.
type Owned interface {
	OwnerID() string
}

// RequireOwner guards a single-record read. It passes through lookup errors,
// rejects a record owned by a different user with apperr.ErrForbidden and
// otherwise returns rec unchanged:
//
//	d, err := repo.GetByID(ctx, id)
//	return auth.RequireOwner(ctx, "department", id, d, err)
func RequireOwner[T Owned](ctx context.Context, kind string, id interface{}, rec T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, apperr.FromNoRows(err, kind, id)
	}
	if err := CheckOwner(ctx, kind, id, rec.OwnerID()); err != nil {
		return zero, err
	}
	return rec, nil
}

// CheckOwner compares owner against the user in ctx.
func CheckOwner(ctx context.Context, kind string, id interface{}, owner string) error {
	user := UserIDFromContext(ctx)
	if user == "" {
		return fmt.Errorf("no authenticated user: %w", apperr.ErrForbidden)
	}
	if owner != user {
		return apperr.Forbidden(kind, id)
	}
	return nil
}

// MustUser returns the user id in ctx or a forbidden error when there is none.
func MustUser(ctx context.Context) (string, error) {
	user := UserIDFromContext(ctx)
	if user == "" {
		return "", fmt.Errorf("no authenticated user: %w", apperr.ErrForbidden)
	}
	return user, nil
}
