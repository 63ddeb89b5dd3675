package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kipimo/core"
)

func TestTrapNoRowsErr(t *testing.T) {
	notFound := errors.New("not found")
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: sql.ErrNoRows, want: notFound},
		{name: "wrapped no rows", err: errors.Wrap(sql.ErrNoRows, "getting"), want: notFound},
		{name: "malformed id", err: &pq.Error{Code: pqInvalidTextRepr}, want: notFound},
		{name: "other", err: other, want: other},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := trapNoRowsErr(tc.err, notFound); got != tc.want {
				t.Errorf("trapNoRowsErr() = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestWhereClause(t *testing.T) {
	var where whereClause
	assert.Equal(t, "", where.String())

	where.add("role = ?", "student")
	require.NoError(t, where.addIn("id::text", []string{"a", "b"}))
	assert.Equal(t, " WHERE role = ? AND id::text IN (?, ?)", where.String())
	assert.Equal(t, []interface{}{"student", "a", "b"}, where.args)
}

func TestOrderBy(t *testing.T) {
	allowed := []string{"submitted_at", "raw_score"}

	assert.Equal(t, " ORDER BY submitted_at ASC", orderBy(nil, allowed, "submitted_at ASC"))
	assert.Equal(t, " ORDER BY raw_score DESC, submitted_at ASC", orderBy([]core.DBOrdering{
		{Field: "raw_score"},
		{Field: "submitted_at", Ascending: true},
	}, allowed, "submitted_at ASC"))
	assert.Equal(t, " ORDER BY submitted_at ASC", orderBy([]core.DBOrdering{
		{Field: "1; DROP TABLE test_attempts"},
	}, allowed, "submitted_at ASC"))
}

func TestStringList(t *testing.T) {
	v, err := stringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	v, err = stringList{"A", "B"}.Value()
	require.NoError(t, err)

	var l stringList
	require.NoError(t, l.Scan(v))
	assert.Equal(t, stringList{"A", "B"}, l)

	require.NoError(t, l.Scan(`["x"]`))
	assert.Equal(t, stringList{"x"}, l)

	assert.Error(t, l.Scan(42))
}
