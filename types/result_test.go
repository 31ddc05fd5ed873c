package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultEnvelope(t *testing.T) {
	data, err := json.Marshal(Ok(Balance{UCO: 500}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":{"value":{"uco":500,"tokens":[]}},"error":null}`, string(data))

	data, err = json.Marshal(Err[Transaction]("not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":null,"error":"not found"}`, string(data))
}

func TestResultUnwrap(t *testing.T) {
	v, err := Ok(7).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = Err[int]("boom").Unwrap()
	assert.EqualError(t, err, "unwrap failed: boom")

	_, err = Result[int]{}.Unwrap()
	assert.EqualError(t, err, "unwrap failed: invalid Result")

	assert.Equal(t, 3, Err[int]("boom").UnwrapOr(3))
}

func TestMapResult(t *testing.T) {
	doubled := MapResult(Ok(21), func(i int) int { return i * 2 })
	assert.Equal(t, 42, doubled.UnwrapOr(0))

	failed := MapResult(Err[int]("nope"), func(i int) string { return "unused" })
	require.NotNil(t, failed.Error)
	assert.Equal(t, "nope", *failed.Error)
}
