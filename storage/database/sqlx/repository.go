// Package sqlxrepos implements the repositories on top of sqlx, for PostgreSQL and SQLite.
// Queries are written with '?' placeholders and rebound for the executor's driver.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
)

type baseRepository struct {
	exec core.DBExecutor
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps the "no rows" err to `notFound`
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// build expands the IN (?) lists and rebinds the query for the executor.
func build(exec core.DBExecutor, query string, args ...interface{}) (string, []interface{}, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "expanding query")
	}
	return exec.Rebind(query), args, nil
}

func limit(n int) string {
	if n <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(n)
}

// namedColumns returns "a, b" and ":a, :b" for the insert queries.
func namedColumns(cols []string) (string, string) {
	named := make([]string, 0, len(cols))
	for _, c := range cols {
		named = append(named, ":"+c)
	}
	return strings.Join(cols, ", "), strings.Join(named, ", ")
}

// setClause returns "a = :a, b = :b" for the update queries.
func setClause(cols []string) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, c+" = :"+c)
	}
	return strings.Join(parts, ", ")
}

// insertReturningID runs a named insert and returns the generated id.
func insertReturningID(ctx context.Context, exec core.DBExecutor, table string, cols []string, arg interface{}) (int, error) {
	names, values := namedColumns(cols)
	query, args, err := exec.BindNamed("INSERT INTO "+table+" ("+names+") VALUES ("+values+") RETURNING id", arg)
	if err != nil {
		return 0, errors.Wrap(err, "binding insert")
	}
	var id int
	if err = exec.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// updateByID runs a named update of `cols` and fails with `notFound` when no row matched.
func updateByID(ctx context.Context, exec core.DBExecutor, table string, cols []string, arg interface{}, notFound error) error {
	query, args, err := exec.BindNamed("UPDATE "+table+" SET "+setClause(cols)+" WHERE id = :id", arg)
	if err != nil {
		return errors.Wrap(err, "binding update")
	}
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound
	}
	return nil
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}
