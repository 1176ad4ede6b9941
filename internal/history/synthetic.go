package history

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/mbd888/chainrisk/internal/signal"
	"github.com/shopspring/decimal"
)

// Synthetic generates plausible, repeatable histories for development. The
// same address, chain and day always produce the same transactions.
type Synthetic struct {
	now func() time.Time
}

// NewSynthetic creates a synthetic provider.
func NewSynthetic() *Synthetic {
	return &Synthetic{now: time.Now}
}

func (s *Synthetic) Name() string { return "synthetic" }

// Transactions returns 1 to 10 transactions on the default chain and 0 to 10
// elsewhere.
func (s *Synthetic) Transactions(_ context.Context, address, chain string) ([]signal.Transaction, error) {
	if _, err := ChainID(chain); err != nil {
		return nil, err
	}

	seed := sha256.Sum256([]byte(address + "|" + chain))
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(seed[:8]), binary.BigEndian.Uint64(seed[8:16]))) //nolint:gosec // not security sensitive

	n := rng.IntN(11)
	if chain == signal.DefaultChain {
		n = 1 + rng.IntN(10)
	}

	anchor := s.now().UTC().Truncate(24 * time.Hour).Unix()
	txs := make([]signal.Transaction, 0, n)
	for i := 0; i < n; i++ {
		counterparty := randomHex(rng, 20)
		tx := signal.Transaction{
			Hash:        randomHex(rng, 32),
			From:        address,
			To:          counterparty,
			Value:       decimal.NewFromFloat(rng.Float64() * 12).Round(4),
			Timestamp:   anchor - rng.Int64N(30*24*3600),
			BlockNumber: 18_000_000 + rng.Uint64N(100_000),
		}
		if rng.IntN(2) == 0 {
			tx.From, tx.To = counterparty, address
		}
		txs = append(txs, tx)
	}

	sortNewestFirst(txs)
	return limit(txs), nil
}

func randomHex(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.UintN(256))
	}
	return "0x" + hex.EncodeToString(b)
}

func sortNewestFirst(txs []signal.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp > txs[j].Timestamp })
}
