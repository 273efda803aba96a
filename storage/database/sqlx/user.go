package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/user"
)

const userTable = `"user"`

var (
	userColumns = []string{"name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login"}

	userOrderings = map[string]string{
		"name":       "lower(name)",
		"username":   "username",
		"email":      "email",
		"created_at": "created_at",
		"last_login": "last_login",
	}
)

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	var w where
	w.add("(username = ? OR (email <> '' AND email = ?))", username, email)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		w.add("id NOT IN (?)", ids)
	}
	query, args, err := build(ex, "SELECT username, email FROM "+userTable+w.String(), w.args...)
	if err != nil {
		return err
	}

	var found []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err = ex.SelectContext(ctx, &found, query, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, u := range found {
		if u.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(found) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	ex := repo.getExec(exec)
	usr.ID = uuid.New().String()
	names, values := namedColumns(append([]string{"id"}, userColumns...))
	query, args, err := ex.BindNamed("INSERT INTO "+userTable+" ("+names+") VALUES ("+values+")", usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "binding insert")
	}
	if _, err = ex.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, ex)
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	ex := repo.getExec(exec)
	var w where

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			w.add("(lower(name) LIKE ? OR lower(username) LIKE ? OR lower(email) LIKE ?)", val, val, val)
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			conds := make([]string, 0, len(filter.Roles))
			args := make([]interface{}, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				conds = append(conds, "roles LIKE ?")
				args = append(args, `%"`+role+`%`)
			}
			w.add("("+strings.Join(conds, " OR ")+")", args...)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	orderBy := core.OrderBy(ordering, userOrderings, "created_at DESC")
	query, args, err := build(ex, "SELECT * FROM "+userTable+w.String()+" ORDER BY "+orderBy, w.args...)
	if err != nil {
		return nil, err
	}
	users := make([]user.User, 0)
	if err = ex.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	ex := repo.getExec(exec)
	var w where
	switch {
	case filter.ID != "":
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		w.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	query := ex.Rebind("SELECT * FROM " + userTable + w.String() + " ORDER BY created_at LIMIT 1")
	if err := ex.GetContext(ctx, &usr, query, w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	ex := repo.getExec(exec)
	if err := updateByID(ctx, ex, userTable, userColumns, usr, user.ErrNotFound); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, ex)
}
