package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/stretchr/testify/require"

	"github.com/0xjunha/apt-reward-script/internal/chain"
	"github.com/0xjunha/apt-reward-script/internal/chain/chaintest"
	"github.com/0xjunha/apt-reward-script/internal/config"
	"github.com/0xjunha/apt-reward-script/internal/distribute"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{config.AdminKeyEnv, "APTOS_NETWORK", "APTOS_NODE_URL", "DISTRIBUTE_ADDRESSES", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	return dir
}

func writeAddresses(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "addresses.csv")
	require.NoError(t, os.WriteFile(path, []byte("0xa\n\n0xb\n0xc\n"), 0o644))
	return path
}

func fakeNode(node *chaintest.Node, dials *int) distribute.Option {
	return distribute.WithDialer(func(aptos.NetworkConfig, ...chain.Option) (chain.Node, error) {
		*dials++
		return node, nil
	})
}

func seedKey(t *testing.T) distribute.Option {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	seed := hex.EncodeToString(priv.Seed())
	return distribute.WithKeySource(func() (string, error) { return seed, nil })
}

func TestExecuteMissingKeyExitsFatal(t *testing.T) {
	dir := isolate(t)
	node := &chaintest.Node{}
	dials := 0

	code := execute([]string{"--addresses", writeAddresses(t, dir)}, fakeNode(node, &dials))

	require.Equal(t, exitFatal, code)
	require.Zero(t, dials)
	require.Zero(t, node.SubmitCalls())
}

func TestExecutePartialFailureExitCodes(t *testing.T) {
	dir := isolate(t)
	addresses := writeAddresses(t, dir)

	node := &chaintest.Node{BalanceOctas: 1 << 40, SendErrs: map[int]error{1: errors.New("rejected")}}
	dials := 0
	code := execute([]string{"--addresses", addresses, "--log-level", "error"}, fakeNode(node, &dials), seedKey(t))
	require.Equal(t, exitOK, code)
	require.Equal(t, 1, node.SequenceCalls())

	node = &chaintest.Node{BalanceOctas: 1 << 40, Reverted: map[int]bool{0: true}}
	code = execute([]string{"--addresses", addresses, "--log-level", "error", "--fail-on-partial"}, fakeNode(node, &dials), seedKey(t))
	require.Equal(t, exitPartial, code)
	require.Equal(t, 1, node.SequenceCalls())
}

func TestExecuteRequireFunds(t *testing.T) {
	dir := isolate(t)
	node := &chaintest.Node{BalanceOctas: 1}
	dials := 0

	code := execute([]string{"--addresses", writeAddresses(t, dir), "--require-funds", "--log-level", "error"}, fakeNode(node, &dials), seedKey(t))

	require.Equal(t, exitFatal, code)
	require.Equal(t, 1, dials)
	require.Zero(t, node.SubmitCalls())
}

func TestExecuteInvalidFlagValue(t *testing.T) {
	isolate(t)
	dials := 0

	code := execute([]string{"--network", "moonnet"}, fakeNode(&chaintest.Node{}, &dials), seedKey(t))

	require.Equal(t, exitFatal, code)
	require.Zero(t, dials)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "distribute.yaml")

	require.Equal(t, exitOK, execute([]string{"config", "init", "--config", path}))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.DefaultAmountOctas, cfg.Distribution.AmountOctas)

	require.Equal(t, exitFatal, execute([]string{"config", "init", "--config", path}))
	require.Equal(t, exitOK, execute([]string{"config", "init", "--config", path, "--force"}))
	require.Equal(t, exitOK, execute([]string{"config", "show", "--config", path}))
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	isolate(t)
	t.Setenv("APTOS_NETWORK", "devnet")

	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--amount", "5", "--network", "mainnet", "--fail-on-partial"}))

	flags := &rootFlags{amount: 5, network: "mainnet", failOnPartial: true}
	cfg, err := loadConfig(root, flags)
	require.NoError(t, err)
	require.Equal(t, uint64(5), cfg.Distribution.AmountOctas)
	require.Equal(t, "mainnet", cfg.Network.Name)
	require.True(t, cfg.Distribution.FailOnPartial)
}
