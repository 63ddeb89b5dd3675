// Package sqlxrepos implements the domain repositories on Postgres, through sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
)

const (
	pqUniqueViolation    = "23505"
	pqInvalidTextRepr    = "22P02" // e.g. malformed uuid
	pqForeignKeyViolation = "23503"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// trapNoRowsErr maps "no rows" (and lookups by a malformed ID) to `notFound`.
func trapNoRowsErr(err, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == sql.ErrNoRows || pqCode(err) == pqInvalidTextRepr {
		return notFound
	}
	return err
}

// withTx runs `fn` in a transaction, committing if it returns nil and rolling back otherwise.
func withTx(ctx context.Context, db core.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// whereClause accumulates `?` conditions; queries are rebound to the driver's placeholders before running.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// addIn adds a `column IN (...)` condition.
func (w *whereClause) addIn(column string, values []string) error {
	cond, args, err := sqlx.In(column+" IN (?)", values)
	if err != nil {
		return err
	}
	w.add(cond, args...)
	return nil
}

func (w whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy keeps the orderings on `allowed` columns; falls back to `def`.
func orderBy(orderings []core.DBOrdering, allowed []string, def string) string {
	clauses := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		for _, col := range allowed {
			if ord.Field == col {
				clauses = append(clauses, ord.String())
				break
			}
		}
	}
	if len(clauses) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

// stringList is a []string stored as a JSON array.
type stringList []string

func (l stringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *stringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]string)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(l))
	default:
		return errors.Errorf("cannot scan %T into stringList", src)
	}
}
