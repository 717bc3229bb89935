package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/crypto"
)

// aip80Prefix is the AIP-80 marker some wallets export in front of Ed25519 keys.
const aip80Prefix = "ed25519-priv-"

// AdminAccount derives the signing account from a hex Ed25519 private key.
func AdminAccount(hexKey string) (*aptos.Account, error) {
	hexKey = strings.TrimSpace(hexKey)
	hexKey = strings.TrimPrefix(hexKey, aip80Prefix)
	if hexKey == "" {
		return nil, errors.New("empty private key")
	}
	key := &crypto.Ed25519PrivateKey{}
	if err := key.FromHex(hexKey); err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	account, err := aptos.NewAccountFromSigner(key)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}
	return account, nil
}
