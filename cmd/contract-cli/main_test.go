package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/harness/config"
	"github.com/govm-net/harness/types"
)

func TestParseTransfers(t *testing.T) {
	out, err := parseTransfers([]string{"00AB:100", "00CD:1"})
	require.NoError(t, err)
	assert.Equal(t, []types.UCOTransfer{{To: "00AB", Amount: 100}, {To: "00CD", Amount: 1}}, out)

	for _, bad := range []string{"00AB", ":5", "00AB:-1", "00AB:x"} {
		_, err := parseTransfers([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestCallArguments(t *testing.T) {
	defer func() { optionsJSON = "" }()

	args, err := callArguments([]string{`{"step":2}`})
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.True(t, args[0].(types.Value).Equal(types.MustValue(map[string]any{"step": 2})))

	optionsJSON = `{"now":5}`
	args, err = callArguments(nil)
	require.NoError(t, err)
	require.Len(t, args, 1)
	opts := args[0].(types.Options)
	require.NotNil(t, opts.Now)
	assert.Equal(t, int64(5), *opts.Now)

	args, err = callArguments([]string{`1`})
	require.NoError(t, err)
	assert.Len(t, args, 2)

	_, err = callArguments([]string{`{`})
	assert.Error(t, err)
}

func TestOpenChainUsesConfig(t *testing.T) {
	cfg = config.Default()
	cfg.Dir = t.TempDir()
	cfg.Chain.Type = "db"

	client, err := openChain()
	require.NoError(t, err)
	defer client.Close()
	_, err = client.DeriveAddress([]byte("seed"), 0)
	assert.NoError(t, err)

	cfg.Endpoint = "ipfs:"
	_, err = openChain()
	assert.Error(t, err)
}
