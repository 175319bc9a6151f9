package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSelect_PlainSelect(t *testing.T) {
	require.True(t, IsSelect("select * from asset"))
	require.True(t, IsSelect("  SELECT 1"))
}

func TestIsSelect_WithRecursive(t *testing.T) {
	require.True(t, IsSelect("WITH RECURSIVE cnt(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM cnt) SELECT x FROM cnt"))
}

func TestIsSelect_Mutation(t *testing.T) {
	require.False(t, IsSelect("insert into asset (name) values ('a')"))
	require.False(t, IsSelect("UPDATE function SET active = 0"))
	require.False(t, IsSelect("DELETE FROM asset"))
}

func TestRewrite_PositionalArrayPassthrough(t *testing.T) {
	stmt, args, err := rewrite("SELECT * FROM t WHERE a = ? AND b = ?", json.RawMessage(`[1, "two"]`))
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t WHERE a = ? AND b = ?", stmt)
	require.Equal(t, []any{int64(1), "two"}, args)
}

func TestRewrite_NamedParamsRewrittenToPositional(t *testing.T) {
	stmt, args, err := rewrite(`SELECT * FROM t WHERE name = :name AND age = :age`, json.RawMessage(`{":name": "alice", ":age": 30}`))
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t WHERE name = ? AND age = ?", stmt)
	require.Equal(t, []any{"alice", int64(30)}, args)
}

func TestRewrite_NamedParamInsideStringLiteralUntouched(t *testing.T) {
	stmt, args, err := rewrite(`SELECT ':name' AS label WHERE x = :x`, json.RawMessage(`{":x": 5}`))
	require.NoError(t, err)
	require.Equal(t, "SELECT ':name' AS label WHERE x = ?", stmt)
	require.Equal(t, []any{int64(5)}, args)
}

func TestRewrite_MissingNamedParamErrors(t *testing.T) {
	_, _, err := rewrite(`SELECT * FROM t WHERE a = :a`, json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestCoerce_ByteArrayBecomesBlob(t *testing.T) {
	v := coerce(json.RawMessage(`[1, 2, 3]`))
	require.Equal(t, []byte{1, 2, 3}, v)
}

func TestCoerce_ObjectBecomesNil(t *testing.T) {
	require.Nil(t, coerce(json.RawMessage(`{"a": 1}`)))
}

func TestCoerce_IntegerStaysInt64(t *testing.T) {
	require.Equal(t, int64(42), coerce(json.RawMessage(`42`)))
}

func TestCoerce_FloatStaysFloat(t *testing.T) {
	require.Equal(t, 3.5, coerce(json.RawMessage(`3.5`)))
}
