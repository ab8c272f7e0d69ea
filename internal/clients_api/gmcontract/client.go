package gmcontract

// Client for the GM contract
// Reads go through eth_call with ABI-packed calldata, sendGM through a keyed transactor

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gm-streak/internal/infra/log"
	"gm-streak/internal/infra/retry"
	"gm-streak/internal/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

var (
	ErrMalformedResponse = errors.New("malformed contract response")
	ErrTxReverted        = errors.New("transaction reverted")
	ErrReadOnly          = errors.New("client has no transaction backend")
)

// Caller is the read side of an RPC connection; *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Backend is everything SendGM needs; *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

type Client struct {
	chain     Chain
	address   common.Address
	caller    Caller
	backend   Backend
	retryOpts retry.Options
	closeFn   func()
}

// NewClient wraps an existing connection. backend may be nil for read-only use.
func NewClient(chain Chain, caller Caller, backend Backend) *Client {
	return &Client{
		chain:   chain,
		address: chain.ContractAddress(),
		caller:  caller,
		backend: backend,
		retryOpts: retry.Options{
			MaxRetries: 2,
			BaseDelay:  300 * time.Millisecond,
			MaxDelay:   3 * time.Second,
			Backoff:    2.0,
		},
	}
}

// Dial connects to the chain's RPC endpoint.
func Dial(ctx context.Context, chain Chain) (*Client, error) {
	if err := chain.Validate(); err != nil {
		return nil, err
	}
	ec, err := ethclient.DialContext(ctx, chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s rpc: %w", chain.Name, err)
	}
	c := NewClient(chain, ec, ec)
	c.closeFn = ec.Close
	return c, nil
}

func (c *Client) Chain() Chain { return c.chain }

func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// call packs method+args, runs eth_call with retries on RPC HTTP 429/5xx and unpacks the result.
func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := ParsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	requestID := log.GenerateRequestID()
	start := time.Now()
	log.LogRequest(requestID, "eth_call", method, zap.String("chain", c.chain.Name))

	var out []byte
	err = retry.Do(ctx, c.retryOpts, func() error {
		res, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
		if err != nil {
			return asRetryable(err)
		}
		out = res
		return nil
	})
	duration := time.Since(start).Milliseconds()
	if err != nil {
		log.LogResponse(requestID, statusOf(err), duration, zap.String("endpoint", c.chain.Name+":"+method), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", c.chain.Name, method, err)
	}
	log.LogResponse(requestID, 200, duration, zap.String("endpoint", c.chain.Name+":"+method))

	values, err := ParsedABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err)
	}
	return values, nil
}

func asRetryable(err error) error {
	var he rpc.HTTPError
	if errors.As(err, &he) {
		return &retry.HTTPError{StatusCode: he.StatusCode, Body: he.Body}
	}
	return err
}

func statusOf(err error) int {
	var he *retry.HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

func uint64At(values []interface{}, i int) (uint64, bool) {
	if i >= len(values) {
		return 0, false
	}
	v, ok := values[i].(*big.Int)
	if !ok || v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

func boolAt(values []interface{}, i int) (bool, bool) {
	if i >= len(values) {
		return false, false
	}
	v, ok := values[i].(bool)
	return v, ok
}

func (c *Client) readUint(ctx context.Context, method string, args ...interface{}) (uint64, error) {
	values, err := c.call(ctx, method, args...)
	if err != nil {
		return 0, err
	}
	v, ok := uint64At(values, 0)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMalformedResponse, method)
	}
	return v, nil
}

// GetUserData reads getUserData(address).
func (c *Client) GetUserData(ctx context.Context, address string) (models.UserStreakRecord, error) {
	if !common.IsHexAddress(address) {
		return models.UserStreakRecord{}, fmt.Errorf("invalid address %q", address)
	}
	values, err := c.call(ctx, "getUserData", common.HexToAddress(address))
	if err != nil {
		return models.UserStreakRecord{}, err
	}

	current, ok1 := uint64At(values, 0)
	longest, ok2 := uint64At(values, 1)
	total, ok3 := uint64At(values, 2)
	last, ok4 := uint64At(values, 3)
	canGM, ok5 := boolAt(values, 4)
	registered, ok6 := boolAt(values, 5)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return models.UserStreakRecord{}, fmt.Errorf("%w: getUserData", ErrMalformedResponse)
	}

	return models.UserStreakRecord{
		Address:             models.NormalizeAddress(address),
		CurrentStreak:       current,
		LongestStreak:       longest,
		TotalActions:        total,
		LastActionTimestamp: int64(last),
		EligibleNow:         canGM,
		IsRegistered:        registered,
	}, nil
}

// GetTopUsers reads getTopUsers(limit). The three arrays must be parallel.
func (c *Client) GetTopUsers(ctx context.Context, limit int) ([]models.RawEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	values, err := c.call(ctx, "getTopUsers", big.NewInt(int64(limit)))
	if err != nil {
		return nil, err
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("%w: getTopUsers returned %d values", ErrMalformedResponse, len(values))
	}

	addrs, ok1 := values[0].([]common.Address)
	streaks, ok2 := values[1].([]*big.Int)
	totals, ok3 := values[2].([]*big.Int)
	if !(ok1 && ok2 && ok3) || len(addrs) != len(streaks) || len(addrs) != len(totals) {
		return nil, fmt.Errorf("%w: getTopUsers arrays", ErrMalformedResponse)
	}

	entries := make([]models.RawEntry, 0, len(addrs))
	for i, addr := range addrs {
		if !streaks[i].IsUint64() || !totals[i].IsUint64() {
			return nil, fmt.Errorf("%w: getTopUsers value out of range", ErrMalformedResponse)
		}
		entries = append(entries, models.RawEntry{
			Address:      strings.ToLower(addr.Hex()),
			Streak:       streaks[i].Uint64(),
			TotalActions: totals[i].Uint64(),
		})
	}
	return entries, nil
}

// GetGlobalStats reads getGlobalStats().
func (c *Client) GetGlobalStats(ctx context.Context) (models.GlobalStats, error) {
	values, err := c.call(ctx, "getGlobalStats")
	if err != nil {
		return models.GlobalStats{}, err
	}
	users, ok1 := uint64At(values, 0)
	total, ok2 := uint64At(values, 1)
	today, ok3 := uint64At(values, 2)
	day, ok4 := uint64At(values, 3)
	if !(ok1 && ok2 && ok3 && ok4) {
		return models.GlobalStats{}, fmt.Errorf("%w: getGlobalStats", ErrMalformedResponse)
	}
	return models.GlobalStats{TotalUsers: users, TotalActions: total, TodaysActions: today, CurrentDay: day}, nil
}

// DailyActionCount reads getDailyGMCount(day) where day counts days since epoch.
func (c *Client) DailyActionCount(ctx context.Context, day uint64) (uint64, error) {
	return c.readUint(ctx, "getDailyGMCount", new(big.Int).SetUint64(day))
}

// GetUserRank reads getUserRank(address). 0 means unranked.
func (c *Client) GetUserRank(ctx context.Context, address string) (int, error) {
	if !common.IsHexAddress(address) {
		return 0, fmt.Errorf("invalid address %q", address)
	}
	rank, err := c.readUint(ctx, "getUserRank", common.HexToAddress(address))
	if err != nil {
		return 0, err
	}
	return int(rank), nil
}

// CanUserGM reads canUserGM(address): the contract's verdict and its reason string.
func (c *Client) CanUserGM(ctx context.Context, address string) (bool, string, error) {
	if !common.IsHexAddress(address) {
		return false, "", fmt.Errorf("invalid address %q", address)
	}
	values, err := c.call(ctx, "canUserGM", common.HexToAddress(address))
	if err != nil {
		return false, "", err
	}
	ok, okBool := boolAt(values, 0)
	var reason string
	if len(values) > 1 {
		reason, _ = values[1].(string)
	}
	if !okBool {
		return false, "", fmt.Errorf("%w: canUserGM", ErrMalformedResponse)
	}
	return ok, reason, nil
}

// ParsePrivateKey accepts hex with or without 0x.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// SenderAddress is the wallet address of key.
func SenderAddress(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

// SendGM submits sendGM() and waits for the receipt. Failures are returned as-is;
// there is no automatic retry of a state-changing call.
func (c *Client) SendGM(ctx context.Context, key *ecdsa.PrivateKey) (*types.Receipt, error) {
	if c.backend == nil {
		return nil, ErrReadOnly
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(c.chain.ChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx

	contract := bind.NewBoundContract(c.address, ParsedABI, c.backend, c.backend, c.backend)
	tx, err := contract.Transact(opts, "sendGM")
	if err != nil {
		return nil, fmt.Errorf("sendGM on %s rejected: %w", c.chain.Name, err)
	}
	log.LogInfo("sendGM submitted", zap.String("chain", c.chain.Name), zap.String("tx", tx.Hash().Hex()))

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("sendGM %s unconfirmed: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, c.chain.TxURL(tx.Hash().Hex()))
	}

	log.LogSuccess("GM sent", zap.String("chain", c.chain.Name), zap.String("tx", tx.Hash().Hex()), zap.Uint64("block", receipt.BlockNumber.Uint64()))
	return receipt, nil
}
