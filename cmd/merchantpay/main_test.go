package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/merchantpay/internal/crypto"
)

const testKeyHex = "0101010101010101010101010101010101010101010101010101010101010101"

func TestEncryptKeyWritesLoadableFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "key.json")

	err := runEncryptKey([]string{"-out", out, "-key", "0x" + testKeyHex, "-password", "pw"})
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := crypto.LoadKey(crypto.KeyConfig{EncryptedKeyPath: out, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestEncryptKeyFallsBackToEnv(t *testing.T) {
	out := filepath.Join(t.TempDir(), "key.json")
	t.Setenv("MERCHANTPAY_CUSTODIAN_PRIVATE_KEY", testKeyHex)
	t.Setenv("MERCHANTPAY_CUSTODIAN_KEY_PASSWORD", "pw")

	require.NoError(t, runEncryptKey([]string{"-out", out}))

	got, err := crypto.LoadKey(crypto.KeyConfig{EncryptedKeyPath: out, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestEncryptKeyRequiresKeyAndPassword(t *testing.T) {
	t.Setenv("MERCHANTPAY_CUSTODIAN_PRIVATE_KEY", "")
	t.Setenv("MERCHANTPAY_CUSTODIAN_KEY_PASSWORD", "")

	err := runEncryptKey([]string{"-out", filepath.Join(t.TempDir(), "key.json")})
	require.Error(t, err)

	err = runEncryptKey([]string{"-key", testKeyHex})
	require.Error(t, err)
}
