package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/mbd888/chainrisk/internal/signal"
	"github.com/mbd888/chainrisk/internal/upstream"
	"github.com/shopspring/decimal"
)

var weiPerEther = decimal.NewFromInt(params.Ether)

// Etherscan reads normal transactions from the Etherscan v2 multichain API.
type Etherscan struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewEtherscan creates an Etherscan provider.
func NewEtherscan(apiKey, baseURL string, client *http.Client) *Etherscan {
	return &Etherscan{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (e *Etherscan) Name() string { return "etherscan" }

type etherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type etherscanTx struct {
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
}

// Transactions returns up to MaxTransactions, newest first.
func (e *Etherscan) Transactions(ctx context.Context, address, chain string) ([]signal.Transaction, error) {
	chainID, err := ChainID(chain)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("chainid", strconv.FormatInt(chainID, 10))
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(MaxTransactions))
	q.Set("sort", "desc")
	q.Set("apikey", e.apiKey)

	var resp etherscanResponse
	if err := upstream.DoJSON(ctx, e.client, upstream.Request{URL: e.baseURL + "?" + q.Encode()}, &resp); err != nil {
		return nil, fmt.Errorf("etherscan txlist: %w", err)
	}

	if resp.Status != "1" {
		if strings.HasPrefix(resp.Message, "No transactions found") {
			return []signal.Transaction{}, nil
		}
		// Rate limits and bad keys come back as status 0 with HTTP 200.
		return nil, fmt.Errorf("etherscan txlist: %w", &upstream.StatusError{Code: http.StatusBadGateway})
	}

	var raw []etherscanTx
	if err := json.Unmarshal(resp.Result, &raw); err != nil {
		return nil, fmt.Errorf("etherscan txlist: %w: %v", signal.ErrMalformedPayload, err)
	}

	txs := make([]signal.Transaction, 0, len(raw))
	for _, r := range raw {
		tx, err := r.convert()
		if err != nil {
			return nil, fmt.Errorf("etherscan txlist: %w: %v", signal.ErrMalformedPayload, err)
		}
		txs = append(txs, tx)
	}
	return limit(txs), nil
}

func (r etherscanTx) convert() (signal.Transaction, error) {
	wei, err := decimal.NewFromString(r.Value)
	if err != nil {
		return signal.Transaction{}, fmt.Errorf("value %q: %w", r.Value, err)
	}
	if wei.IsNegative() {
		return signal.Transaction{}, fmt.Errorf("negative value %q", r.Value)
	}
	ts, err := strconv.ParseInt(r.TimeStamp, 10, 64)
	if err != nil {
		return signal.Transaction{}, fmt.Errorf("timestamp %q: %w", r.TimeStamp, err)
	}
	block, err := strconv.ParseUint(r.BlockNumber, 10, 64)
	if err != nil {
		return signal.Transaction{}, fmt.Errorf("block %q: %w", r.BlockNumber, err)
	}
	return signal.Transaction{
		Hash:        r.Hash,
		From:        signal.NormalizeAddress(r.From),
		To:          signal.NormalizeAddress(r.To),
		Value:       wei.DivRound(weiPerEther, 18),
		Timestamp:   ts,
		BlockNumber: block,
	}, nil
}
