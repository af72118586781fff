package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/domain"
	"github.com/lib/pq"
)

func (r *Repo) InsertUser(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, insertUserSQL, u.ID, u.Name, u.Email)
	if isUniqueViolation(err) {
		return domain.ErrConflict("email already registered")
	}
	return err
}

func (r *Repo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, getUserSQL, id).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns the given users, or everyone when ids is empty.
func (r *Repo) ListUsers(ctx context.Context, ids []string, page domain.Page) ([]*domain.User, error) {
	page = page.Normalize()

	var b strings.Builder
	b.WriteString(`SELECT id, name, email FROM users`)
	args := []any{}
	if len(ids) > 0 {
		args = append(args, pq.Array(ids))
		b.WriteString(` WHERE id = ANY($1::uuid[])`)
	}
	args = append(args, page.Size, page.From)
	fmt.Fprintf(&b, ` ORDER BY name, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteUser(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "user", deleteUserSQL, id)
}

func (r *Repo) InsertCategory(ctx context.Context, c *domain.Category) error {
	_, err := r.db.ExecContext(ctx, insertCategorySQL, c.ID, c.Name)
	if isUniqueViolation(err) {
		return domain.ErrConflict("category name already exists")
	}
	return err
}

func (r *Repo) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRowContext(ctx, getCategorySQL, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("category not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) ListCategories(ctx context.Context, page domain.Page) ([]*domain.Category, error) {
	page = page.Normalize()
	rows, err := r.db.QueryContext(ctx, listCategoriesSQL, page.Size, page.From)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateCategory(ctx context.Context, c *domain.Category) error {
	err := execOne(ctx, r.db, "category", updateCategorySQL, c.ID, c.Name)
	if isUniqueViolation(err) {
		return domain.ErrConflict("category name already exists")
	}
	return err
}

func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	err := execOne(ctx, r.db, "category", deleteCategorySQL, id)
	if isForeignKeyViolation(err) {
		return domain.ErrForbidden("category is used by events")
	}
	return err
}

func (r *Repo) CategoryInUse(ctx context.Context, id string) (bool, error) {
	var inUse bool
	err := r.db.QueryRowContext(ctx, categoryInUseSQL, id).Scan(&inUse)
	return inUse, err
}

// execOne runs a statement that must touch exactly one row.
func execOne(ctx context.Context, q querier, what, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound(what + " not found")
	}
	return nil
}
