// Package signal defines the evidence types exchanged between the source
// adapters, the collector and the risk engine.
//
// Every adapter call settles into exactly one Result variant: OK with a
// payload, Failed with a reason, or Unavailable when the collaborator was
// never configured. The engine treats the last two identically (no evidence)
// but they are reported separately for observability.
package signal

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Error taxonomy for per-source problems. None of these ever fail a request.
var (
	ErrSourceUnavailable = errors.New("source not configured")
	ErrSourceFailed      = errors.New("source failed")
	ErrMalformedPayload  = errors.New("malformed upstream payload")
)

// Source names, also used as metric labels and breaker keys.
const (
	SourceSanctions   = "sanctions"
	SourceScamReports = "scam_reports"
	SourceBehavioral  = "behavioral"
	SourceCrossChain  = "cross_chain"
	SourceHistory     = "history"
)

// DefaultChain is used when a request omits the blockchain.
const DefaultChain = "ethereum"

// SupportedChains lists the chains covered by history and cross-chain
// lookups, in report order.
var SupportedChains = []string{"ethereum", "polygon", "bsc", "arbitrum", "avalanche"}

// IsSupportedChain reports whether chain is one of SupportedChains.
func IsSupportedChain(chain string) bool {
	chain = strings.ToLower(chain)
	for _, c := range SupportedChains {
		if c == chain {
			return true
		}
	}
	return false
}

// NormalizeAddress returns the canonical lookup form of an address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Transaction is a single transfer returned by a history provider.
type Transaction struct {
	Hash        string          `json:"hash"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Value       decimal.Decimal `json:"value"`
	Timestamp   int64           `json:"timestamp"`
	BlockNumber uint64          `json:"blockNumber"`
}

// Status tags a Result variant.
type Status string

const (
	StatusOK          Status = "ok"
	StatusFailed      Status = "failed"
	StatusUnavailable Status = "unavailable"
)

// Result is the outcome of one adapter call.
type Result[T any] struct {
	status Status
	value  T
	reason string
}

// OK wraps a successful payload.
func OK[T any](v T) Result[T] {
	return Result[T]{status: StatusOK, value: v}
}

// Failed records a runtime failure: transport, timeout or parse error.
func Failed[T any](reason string) Result[T] {
	if reason == "" {
		reason = ErrSourceFailed.Error()
	}
	return Result[T]{status: StatusFailed, reason: reason}
}

// FailedErr is Failed with the reason taken from err.
func FailedErr[T any](err error) Result[T] {
	if err == nil {
		return Failed[T]("")
	}
	return Failed[T](err.Error())
}

// Unavailable records that the collaborator was not configured.
func Unavailable[T any]() Result[T] {
	return Result[T]{status: StatusUnavailable, reason: ErrSourceUnavailable.Error()}
}

// Status returns the variant tag. The zero Result reports StatusFailed so an
// unset entry can never be mistaken for evidence.
func (r Result[T]) Status() Status {
	if r.status == "" {
		return StatusFailed
	}
	return r.status
}

// Value returns the payload and whether the result is OK.
func (r Result[T]) Value() (T, bool) {
	if r.status != StatusOK {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Reason is empty for OK results.
func (r Result[T]) Reason() string {
	if r.status == "" {
		return "not collected"
	}
	return r.reason
}

// IsOK reports whether the result carries evidence.
func (r Result[T]) IsOK() bool {
	return r.status == StatusOK
}

// Outcome is the serialisable status of a Result, without its payload.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Outcome strips the payload.
func (r Result[T]) Outcome() Outcome {
	return Outcome{Status: r.Status(), Reason: r.Reason()}
}

// MarshalJSON encodes the outcome only; payloads are exposed separately.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Outcome())
}

// Set is the consolidated evidence for one address/chain pair. The collector
// fills every field before the engine sees it.
type Set struct {
	Address      string
	Chain        string
	Sanctions    Result[SanctionsMatch]
	ScamReports  Result[ScamReports]
	Behavioral   Result[BehavioralAnalysis]
	CrossChain   Result[CrossChainReport]
	Transactions []Transaction
	History      Outcome
}

// Outcomes maps each source to its settled status.
func (s *Set) Outcomes() map[string]Outcome {
	return map[string]Outcome{
		SourceSanctions:   s.Sanctions.Outcome(),
		SourceScamReports: s.ScamReports.Outcome(),
		SourceBehavioral:  s.Behavioral.Outcome(),
		SourceCrossChain:  s.CrossChain.Outcome(),
		SourceHistory:     s.History,
	}
}
