// Package ethwallet implements wallet.Provider against a real Ethereum RPC
// endpoint, mirroring the browser-extension path of the original product.
package ethwallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/smartpay/pkg/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultDialTimeout = 5 * time.Second

	// The MNEE token contract is not loaded in this demo, so connected
	// accounts are shown with the fixed demo balance. A production build
	// replaces this with a balanceOf call against the token contract.
	demoBalanceMNEE = "1540.00"
)

var errNoAccounts = errors.New("no accounts returned from wallet endpoint")

// Provider requests an account from a node's wallet namespace.
type Provider struct {
	rpcURL  string
	logger  *zap.Logger
	balance decimal.Decimal
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger wires diagnostic logging.
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(provider *Provider) {
		if logger != nil {
			provider.logger = logger
		}
	}
}

// NewProvider wires a Provider for the given RPC endpoint.
func NewProvider(rpcURL string, options ...ProviderOption) (*Provider, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("wallet rpc url is required")
	}
	provider := &Provider{
		rpcURL:  rpcURL,
		logger:  zap.NewNop(),
		balance: decimal.RequireFromString(demoBalanceMNEE),
	}
	for _, option := range options {
		if option != nil {
			option(provider)
		}
	}
	return provider, nil
}

// RequestAccount dials the endpoint and returns its first account. Rejection
// or an empty account list surfaces as an error, which the connector maps to
// ConnectionDenied.
func (provider *Provider) RequestAccount(ctx context.Context) (wallet.Identity, error) {
	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	rpcClient, err := rpc.DialContext(dialCtx, provider.rpcURL)
	if err != nil {
		return wallet.Identity{}, fmt.Errorf("dial wallet endpoint: %w", err)
	}
	defer rpcClient.Close()

	var accounts []common.Address
	if err := rpcClient.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return wallet.Identity{}, fmt.Errorf("request accounts: %w", err)
	}
	if len(accounts) == 0 {
		return wallet.Identity{}, errNoAccounts
	}
	account := accounts[0]

	// Connectivity check; the chain id is informational only.
	chainID, err := ethclient.NewClient(rpcClient).ChainID(ctx)
	if err != nil {
		return wallet.Identity{}, fmt.Errorf("query chain id: %w", err)
	}
	provider.logger.Info("wallet connected",
		zap.String("address", account.Hex()),
		zap.String("chain_id", chainID.String()))

	return wallet.Identity{Address: account.Hex(), BalanceMNEE: provider.balance}, nil
}
