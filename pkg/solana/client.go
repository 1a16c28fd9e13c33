package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/anchor-bindings/pkg/rate"
	"github.com/code-payments/anchor-bindings/pkg/retry"
	"github.com/code-payments/anchor-bindings/pkg/retry/backoff"
)

const (
	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005

	// Reference: https://github.com/solana-labs/solana/blob/v1.18.0/rpc/src/rpc.rs#L101
	maxMultipleAccounts = 100
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

// CommitmentFromString parses a commitment level name.
func CommitmentFromString(s string) (Commitment, error) {
	switch s {
	case confirmationStatusProcessed, confirmationStatusConfirmed, confirmationStatusFinalized:
		return Commitment{Commitment: s}, nil
	}
	return Commitment{}, errors.Errorf("invalid commitment %q", s)
}

var (
	ErrNoAccountInfo     = errors.New("no account info")
	ErrSignatureNotFound = errors.New("signature not found")
)

// Signature is a transaction signature.
type Signature [ed25519.SignatureSize]byte

// SignatureFromString decodes a base58 transaction signature.
func SignatureFromString(s string) (sig Signature, err error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return sig, errors.Wrap(err, "invalid base58 signature")
	}
	if len(decoded) != ed25519.SignatureSize {
		return sig, errors.Errorf("invalid signature size: %d", len(decoded))
	}
	copy(sig[:], decoded)
	return sig, nil
}

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

// InnerInstruction is an instruction invoked by a program during execution
// of a top level instruction.
type InnerInstruction struct {
	// Index of the top level instruction that invoked it.
	Index   int
	Program ed25519.PublicKey
	Data    []byte
}

// TransactionLogs is the execution trace of a confirmed transaction.
type TransactionLogs struct {
	Slot              uint64
	BlockTime         *time.Time
	LogMessages       []string
	InnerInstructions []InnerInstruction
	Err               *TransactionError
}

// Client provides an interaction with the Solana JSON RPC API.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (AccountInfo, error)

	// GetMultipleAccounts returns one entry per requested account, nil where
	// the account does not exist.
	GetMultipleAccounts(ctx context.Context, accounts []ed25519.PublicKey, commitment Commitment) ([]*AccountInfo, error)

	GetTransactionLogs(ctx context.Context, sig Signature, commitment Commitment) (*TransactionLogs, error)
}

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

type client struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	limiter rate.Limiter
	retrier retry.Retrier
}

// New returns a client using the specified endpoint.
func New(endpoint string) Client {
	return NewWithRPCOptions(endpoint, nil)
}

// NewWithRPCOptions returns a client configured with the specified RPC options.
func NewWithRPCOptions(endpoint string, opts *jsonrpc.RPCClientOpts) Client {
	return newClient(jsonrpc.NewClientWithOpts(endpoint, opts), &rate.NoLimiter{}, retry.NewRetrier(
		retry.RetriableErrors(errRateLimited, errServiceError),
		retry.Limit(3),
		retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
	))
}

// NewFromConfig returns a client with throttling and retries set up from
// the provided config.
func NewFromConfig(cfg *ClientConfig) Client {
	var limiter rate.Limiter = &rate.NoLimiter{}
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLocalRateLimiter(xrate.Limit(cfg.RequestsPerSecond))
	}

	return newClient(jsonrpc.NewClient(cfg.Endpoint), limiter, retry.NewRetrier(
		retry.RetriableErrors(errRateLimited, errServiceError),
		retry.Limit(cfg.MaxRetries+1),
		retry.BackoffWithJitter(backoff.BinaryExponential(cfg.BaseBackoff), cfg.MaxBackoff, 0.1),
	))
}

func newClient(rpc jsonrpc.RPCClient, limiter rate.Limiter, retrier retry.Retrier) *client {
	return &client{
		log:     logrus.StandardLogger().WithField("type", "solana/client"),
		client:  rpc,
		limiter: limiter,
		retrier: retrier,
	}
}

func (c *client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	_, err := c.retrier.Retry(ctx, func() error {
		if err := c.limiter.Wait(ctx, method); err != nil {
			return err
		}

		err := c.client.CallFor(out, method, params...)
		if err == nil {
			return nil
		}

		return c.handleRpcError(method, err)
	})

	return err
}

func (c *client) handleRpcError(method string, err error) error {
	switch rpcErr := err.(type) {
	case *jsonrpc.RPCError:
		if rpcErr.Code == 429 {
			c.log.WithField("method", method).Warn("rate limited")
			return errRateLimited
		}
		if rpcErr.Code >= 500 || rpcErr.Code == rpcNodeUnhealthyCode {
			return errServiceError
		}
	case *jsonrpc.HTTPError:
		if rpcErr.Code == 429 {
			c.log.WithField("method", method).Warn("rate limited")
			return errRateLimited
		}
		if rpcErr.Code >= 500 {
			return errServiceError
		}
	}

	return err
}

type rpcAccount struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [val, encoding]
	Executable bool     `json:"executable"`
}

func (a *rpcAccount) toAccountInfo() (accountInfo AccountInfo, err error) {
	accountInfo.Owner, err = base58.Decode(a.Owner)
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base58 encoded owner")
	}

	if len(a.Data) == 0 {
		return accountInfo, errors.New("missing account data")
	}
	accountInfo.Data, err = base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base64 encoded data")
	}

	accountInfo.Lamports = a.Lamports
	accountInfo.Executable = a.Executable

	return accountInfo, nil
}

type accountsConfig struct {
	Commitment string `json:"commitment"`
	Encoding   string `json:"encoding"`
}

func (c *client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (AccountInfo, error) {
	type rpcResponse struct {
		Value *rpcAccount `json:"value"`
	}

	var resp rpcResponse
	err := c.call(ctx, &resp, "getAccountInfo", base58.Encode(account), accountsConfig{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	})
	if err != nil {
		return AccountInfo{}, errors.Wrap(err, "getAccountInfo() failed to send request")
	}

	if resp.Value == nil {
		return AccountInfo{}, ErrNoAccountInfo
	}

	return resp.Value.toAccountInfo()
}

func (c *client) GetMultipleAccounts(ctx context.Context, accounts []ed25519.PublicKey, commitment Commitment) ([]*AccountInfo, error) {
	type rpcResponse struct {
		Value []*rpcAccount `json:"value"`
	}

	result := make([]*AccountInfo, 0, len(accounts))
	for start := 0; start < len(accounts); start += maxMultipleAccounts {
		end := start + maxMultipleAccounts
		if end > len(accounts) {
			end = len(accounts)
		}

		addresses := make([]string, 0, end-start)
		for _, account := range accounts[start:end] {
			addresses = append(addresses, base58.Encode(account))
		}

		var resp rpcResponse
		err := c.call(ctx, &resp, "getMultipleAccounts", addresses, accountsConfig{
			Commitment: commitment.Commitment,
			Encoding:   "base64",
		})
		if err != nil {
			return nil, errors.Wrap(err, "getMultipleAccounts() failed to send request")
		}
		if len(resp.Value) != len(addresses) {
			return nil, errors.Errorf("getMultipleAccounts() returned %d accounts, expected %d", len(resp.Value), len(addresses))
		}

		for i, value := range resp.Value {
			if value == nil {
				result = append(result, nil)
				continue
			}

			info, err := value.toAccountInfo()
			if err != nil {
				return nil, errors.Wrapf(err, "invalid account %s", addresses[i])
			}
			result = append(result, &info)
		}
	}

	return result, nil
}

func (c *client) GetTransactionLogs(ctx context.Context, sig Signature, commitment Commitment) (*TransactionLogs, error) {
	type rpcInstruction struct {
		ProgramIDIndex int    `json:"programIdIndex"`
		Data           string `json:"data"`
	}

	type rpcResponse struct {
		Slot        uint64 `json:"slot"`
		BlockTime   *int64 `json:"blockTime"`
		Transaction struct {
			Message struct {
				AccountKeys []string `json:"accountKeys"`
			} `json:"message"`
		} `json:"transaction"`
		Meta *struct {
			Err               interface{} `json:"err"`
			LogMessages       []string    `json:"logMessages"`
			InnerInstructions []struct {
				Index        int              `json:"index"`
				Instructions []rpcInstruction `json:"instructions"`
			} `json:"innerInstructions"`
			LoadedAddresses struct {
				Writable []string `json:"writable"`
				Readonly []string `json:"readonly"`
			} `json:"loadedAddresses"`
		} `json:"meta"`
	}

	config := struct {
		Commitment                     string `json:"commitment"`
		Encoding                       string `json:"encoding"`
		MaxSupportedTransactionVersion int    `json:"maxSupportedTransactionVersion"`
	}{
		Commitment:                     commitment.Commitment,
		Encoding:                       "json",
		MaxSupportedTransactionVersion: 0,
	}

	var resp *rpcResponse
	if err := c.call(ctx, &resp, "getTransaction", sig.String(), config); err != nil {
		return nil, errors.Wrap(err, "getTransaction() failed to send request")
	}

	if resp == nil {
		return nil, ErrSignatureNotFound
	}

	logs := &TransactionLogs{
		Slot: resp.Slot,
	}

	if resp.BlockTime != nil {
		blockTime := time.Unix(*resp.BlockTime, 0)
		logs.BlockTime = &blockTime
	}

	if resp.Meta == nil {
		return logs, nil
	}

	var err error
	logs.Err, err = ParseTransactionError(resp.Meta.Err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse transaction result")
	}

	logs.LogMessages = resp.Meta.LogMessages

	// Instruction program indices address the static keys followed by the
	// keys loaded from lookup tables.
	keys := make([]string, 0, len(resp.Transaction.Message.AccountKeys)+len(resp.Meta.LoadedAddresses.Writable)+len(resp.Meta.LoadedAddresses.Readonly))
	keys = append(keys, resp.Transaction.Message.AccountKeys...)
	keys = append(keys, resp.Meta.LoadedAddresses.Writable...)
	keys = append(keys, resp.Meta.LoadedAddresses.Readonly...)

	for _, inner := range resp.Meta.InnerInstructions {
		for _, ix := range inner.Instructions {
			if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(keys) {
				return nil, errors.Errorf("program index %d out of range", ix.ProgramIDIndex)
			}

			program, err := base58.Decode(keys[ix.ProgramIDIndex])
			if err != nil {
				return nil, errors.Wrap(err, "invalid base58 program id")
			}

			data, err := base58.Decode(ix.Data)
			if err != nil {
				c.log.WithError(err).WithField("signature", sig.String()).Debug("skipping inner instruction with invalid data")
				continue
			}

			logs.InnerInstructions = append(logs.InnerInstructions, InnerInstruction{
				Index:   inner.Index,
				Program: program,
				Data:    data,
			})
		}
	}

	return logs, nil
}
