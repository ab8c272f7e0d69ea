package gmcontract

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var ErrUnknownChain = errors.New("unknown chain")

// Chain describes one deployment of the GM contract.
type Chain struct {
	Name     string `mapstructure:"name" json:"name"`
	ChainID  int64  `mapstructure:"chain_id" json:"chainId"`
	RPCURL   string `mapstructure:"rpc_url" json:"-"`
	Contract string `mapstructure:"contract" json:"contract"`
	Explorer string `mapstructure:"explorer" json:"explorer"`
}

var defaultChains = map[string]Chain{
	"base": {
		Name:     "base",
		ChainID:  8453,
		RPCURL:   "https://mainnet.base.org",
		Contract: "0x67FafE153aeB3c2caae7a138C1409aB53f680C75",
		Explorer: "https://basescan.org",
	},
	"celo": {
		Name:     "celo",
		ChainID:  42220,
		RPCURL:   "https://forno.celo.org",
		Contract: "0x0A419eC7Ea59cDa9DE934AD70fAc9f3Ca2960f91",
		Explorer: "https://celoscan.io",
	},
}

// DefaultChain returns the built-in deployment for name.
func DefaultChain(name string) (Chain, error) {
	c, ok := defaultChains[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %q", ErrUnknownChain, name)
	}
	return c, nil
}

// DefaultChainNames is sorted for stable help output.
func DefaultChainNames() []string {
	names := make([]string, 0, len(defaultChains))
	for name := range defaultChains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that the chain can be dialed and called.
func (c Chain) Validate() error {
	if c.Name == "" {
		return errors.New("chain name is empty")
	}
	if c.RPCURL == "" {
		return fmt.Errorf("chain %s: rpc_url is empty", c.Name)
	}
	if !common.IsHexAddress(c.Contract) {
		return fmt.Errorf("chain %s: invalid contract address %q", c.Name, c.Contract)
	}
	return nil
}

func (c Chain) ContractAddress() common.Address {
	return common.HexToAddress(c.Contract)
}

// TxURL links a transaction hash on the chain explorer.
func (c Chain) TxURL(hash string) string {
	if c.Explorer == "" {
		return hash
	}
	return strings.TrimRight(c.Explorer, "/") + "/tx/" + hash
}

// AddressURL links an account on the chain explorer.
func (c Chain) AddressURL(address string) string {
	if c.Explorer == "" {
		return address
	}
	return strings.TrimRight(c.Explorer, "/") + "/address/" + address
}
