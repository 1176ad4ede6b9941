// Package history provides transaction history for an address on one chain.
package history

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mbd888/chainrisk/internal/signal"
)

// MaxTransactions is the number of most recent transactions considered.
const MaxTransactions = 100

// ErrUnsupportedChain is returned for chains a provider cannot serve.
var ErrUnsupportedChain = errors.New("history: unsupported chain")

// Provider returns recent transactions, newest first.
type Provider interface {
	Name() string
	Transactions(ctx context.Context, address, chain string) ([]signal.Transaction, error)
}

// chainIDs maps supported chains to their EVM chain IDs.
var chainIDs = map[string]int64{
	"ethereum":  1,
	"polygon":   137,
	"bsc":       56,
	"arbitrum":  42161,
	"avalanche": 43114,
}

// ChainID returns the EVM chain ID for a supported chain.
func ChainID(chain string) (int64, error) {
	id, ok := chainIDs[chain]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedChain, chain)
	}
	return id, nil
}

// Empty is a provider that knows of no transactions.
type Empty struct{}

func (Empty) Name() string { return "none" }

func (Empty) Transactions(context.Context, string, string) ([]signal.Transaction, error) {
	return []signal.Transaction{}, nil
}

// New builds the named provider: "etherscan", "synthetic" or "none".
func New(kind, apiKey, baseURL string, client *http.Client) (Provider, error) {
	switch kind {
	case "etherscan":
		return NewEtherscan(apiKey, baseURL, client), nil
	case "synthetic":
		return NewSynthetic(), nil
	case "none", "":
		return Empty{}, nil
	default:
		return nil, fmt.Errorf("history: unknown provider %q", kind)
	}
}

func limit(txs []signal.Transaction) []signal.Transaction {
	if len(txs) > MaxTransactions {
		return txs[:MaxTransactions]
	}
	return txs
}
