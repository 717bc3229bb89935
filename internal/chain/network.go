// Package chain is the boundary to the Aptos network: account derivation, network selection and the node client.
package chain

import (
	"fmt"
	"strings"

	"github.com/aptos-labs/aptos-go-sdk"
)

// ResolveNetwork maps a network name to the SDK network config, overriding the
// REST endpoint when nodeURL is set.
func ResolveNetwork(name, nodeURL string) (aptos.NetworkConfig, error) {
	var network aptos.NetworkConfig
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mainnet":
		network = aptos.MainnetConfig
	case "", "testnet":
		network = aptos.TestnetConfig
	case "devnet":
		network = aptos.DevnetConfig
	case "localnet", "local":
		network = aptos.LocalnetConfig
	default:
		return aptos.NetworkConfig{}, fmt.Errorf("unknown network %q", name)
	}
	if nodeURL = strings.TrimSpace(nodeURL); nodeURL != "" {
		network.NodeUrl = strings.TrimSuffix(nodeURL, "/")
	}
	return network, nil
}
