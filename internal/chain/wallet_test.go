package chain

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/aptos-labs/aptos-go-sdk"
)

func newSeedHex(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return hex.EncodeToString(priv.Seed())
}

func TestAdminAccount(t *testing.T) {
	seed := newSeedHex(t)

	plain, err := AdminAccount(seed)
	if err != nil {
		t.Fatalf("expected account, got error: %v", err)
	}
	if plain.Address == (aptos.AccountAddress{}) {
		t.Fatalf("expected derived address to be non-zero")
	}

	prefixed, err := AdminAccount("0x" + seed)
	if err != nil {
		t.Fatalf("0x-prefixed key rejected: %v", err)
	}
	aip80, err := AdminAccount(aip80Prefix + "0x" + seed)
	if err != nil {
		t.Fatalf("AIP-80 key rejected: %v", err)
	}
	if prefixed.Address != plain.Address || aip80.Address != plain.Address {
		t.Fatalf("key spellings derived different addresses")
	}
}

func TestAdminAccountInvalid(t *testing.T) {
	for _, key := range []string{"", "   ", "not-hex", "0x1234"} {
		if _, err := AdminAccount(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestResolveNetwork(t *testing.T) {
	cases := map[string]aptos.NetworkConfig{
		"mainnet":  aptos.MainnetConfig,
		"TESTNET":  aptos.TestnetConfig,
		"":         aptos.TestnetConfig,
		"devnet":   aptos.DevnetConfig,
		"localnet": aptos.LocalnetConfig,
	}
	for name, want := range cases {
		got, err := ResolveNetwork(name, "")
		if err != nil {
			t.Fatalf("%q: unexpected error %v", name, err)
		}
		if got.NodeUrl != want.NodeUrl || got.ChainId != want.ChainId {
			t.Fatalf("%q: expected %s, got %s", name, want.NodeUrl, got.NodeUrl)
		}
	}

	got, err := ResolveNetwork("mainnet", "https://node.example.org/v1/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NodeUrl != "https://node.example.org/v1" {
		t.Fatalf("node url override not applied: %s", got.NodeUrl)
	}
	if got.ChainId != aptos.MainnetConfig.ChainId {
		t.Fatalf("override must keep the chain id")
	}

	if _, err := ResolveNetwork("moonnet", ""); err == nil {
		t.Fatalf("expected error for unknown network")
	}
}
