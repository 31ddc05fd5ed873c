package repository

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/harness/types"
)

func writeProject(t *testing.T, bytecode []byte, manifest string) string {
	t.Helper()
	dir := t.TempDir()
	dist := filepath.Join(dir, DistDir)
	require.NoError(t, os.MkdirAll(dist, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, BytecodeFile), bytecode, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dist, ManifestFile), []byte(manifest), 0644))
	return dir
}

func TestLoadBuild(t *testing.T) {
	bytecode := []byte("\x00asm\x01\x00\x00\x00")
	dir := writeProject(t, bytecode, `{"abi":{"functions":{"inc":{"type":"action"}}}}`)

	build, err := LoadBuild(dir)
	require.NoError(t, err)
	assert.Equal(t, bytecode, build.Bytecode)
	assert.Equal(t, sha256.Sum256(bytecode), build.Hash)
	assert.True(t, build.Manifest.Has("abi"))
}

func TestLoadBuildErrors(t *testing.T) {
	_, err := LoadBuild(t.TempDir())
	assert.Error(t, err)

	var decode *types.ProtocolDecodeError
	_, err = LoadBuild(writeProject(t, []byte{0}, `{"abi":`))
	assert.ErrorAs(t, err, &decode)

	_, err = LoadBuild(writeProject(t, []byte{0}, `[1,2]`))
	assert.ErrorAs(t, err, &decode)
}

func TestManager(t *testing.T) {
	manager, err := NewManager(filepath.Join(t.TempDir(), "contracts"))
	require.NoError(t, err)

	build, err := LoadBuild(writeProject(t, []byte("code-v1"), `{"version":1}`))
	require.NoError(t, err)

	addr := types.Address("0000abcdef")
	require.NoError(t, manager.RegisterCode(addr, build, ""))

	contractDir := filepath.Join(manager.rootDir, "0000ABCDEF")
	assert.DirExists(t, contractDir)
	assert.FileExists(t, filepath.Join(contractDir, BytecodeFile))
	assert.FileExists(t, filepath.Join(contractDir, metadataFile))

	code, err := manager.GetCode(addr)
	require.NoError(t, err)
	assert.Equal(t, []byte("code-v1"), code.Code)
	assert.Equal(t, build.Hash, code.Hash)
	assert.True(t, code.Manifest.Equal(types.MustValue(map[string]any{"version": 1})))
	assert.Empty(t, code.Upgrades)
	assert.False(t, code.UpdateTime.IsZero())

	err = manager.RegisterCode(addr, build, "")
	assert.ErrorContains(t, err, "already exists")
}

func TestManagerUpgradeChain(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	v1, err := LoadBuild(writeProject(t, []byte("v1"), `{}`))
	require.NoError(t, err)
	v2, err := LoadBuild(writeProject(t, []byte("v2"), `{"version":2}`))
	require.NoError(t, err)

	require.NoError(t, manager.RegisterCode("00AA", v1, ""))
	require.NoError(t, manager.RegisterCode("00BB", v2, "00AA"))

	code, err := manager.GetCode("00bb")
	require.NoError(t, err)
	assert.Equal(t, types.Address("00AA"), code.Upgrades)

	list, err := manager.List()
	require.NoError(t, err)
	assert.Equal(t, []types.Address{"00AA", "00BB"}, list)
}

func TestGetCodeMissing(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = manager.GetCode("00FF")
	assert.ErrorIs(t, err, ErrNotDeployed)
}

func TestGetCodeDetectsTampering(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)
	build, err := LoadBuild(writeProject(t, []byte("original"), `{}`))
	require.NoError(t, err)
	require.NoError(t, manager.RegisterCode("00CC", build, ""))

	require.NoError(t, os.WriteFile(filepath.Join(manager.rootDir, "00CC", BytecodeFile), []byte("patched"), 0644))
	_, err = manager.GetCode("00CC")
	assert.ErrorContains(t, err, "does not match")
}
