// Package netconfig loads the MNEE settlement network parameters from the
// remote config service, falling back to embedded values when the service is
// unreachable. The result is display-only data for the payment surface.
package netconfig

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultURL is the production sandbox config endpoint.
const DefaultURL = "https://sandbox-proxy-api.mnee.net/v1/config"

const defaultFetchTimeout = 5 * time.Second

// FeeTier is one row of the network fee table.
type FeeTier struct {
	Fee int64 `json:"fee" validate:"gte=0"`
	Max int64 `json:"max" validate:"gte=0"`
	Min int64 `json:"min" validate:"gte=0"`
}

// NetworkConfig describes the settlement network. Loaded once per process
// and read-only afterward.
type NetworkConfig struct {
	Approver    string    `json:"approver" validate:"required"`
	Decimals    int32     `json:"decimals" validate:"gte=0"`
	FeeAddress  string    `json:"feeAddress" validate:"required"`
	BurnAddress string    `json:"burnAddress" validate:"required"`
	MintAddress string    `json:"mintAddress" validate:"required"`
	Fees        []FeeTier `json:"fees" validate:"required,dive"`
	TokenID     string    `json:"tokenId" validate:"required"`
}

// FallbackConfig returns the embedded offline configuration used whenever
// the remote fetch fails.
func FallbackConfig() NetworkConfig {
	return NetworkConfig{
		Approver:    "02bed35e894cc41cc9879b4002ad03d33533b615c1...",
		Decimals:    5,
		FeeAddress:  "1H9wgHCTHjmgBw4PAbQ4PQBQHGFxHWhjbU",
		BurnAddress: "1HNuPi9Y7nMV6x8crJ6DnD1wJtkLym8EFE",
		MintAddress: "1AZNdbFYBDFTAEgzZMfPzANxyNrpGJZAUY",
		Fees:        []FeeTier{{Fee: 1000, Max: 1000000, Min: 10000}},
		TokenID:     "833a7720966a2a435db28d967385e8aa7284b6150eb...",
	}
}

// Loader fetches the network config exactly once per process lifetime; the
// first failure permanently falls back for the session.
type Loader struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
	validate   *validator.Validate

	once   sync.Once
	config NetworkConfig
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient overrides the transport (tests point it at a fake server).
func WithHTTPClient(httpClient *http.Client) LoaderOption {
	return func(loader *Loader) {
		if httpClient != nil {
			loader.httpClient = httpClient
		}
	}
}

// WithLogger wires diagnostic logging for fallback events.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(loader *Loader) {
		if logger != nil {
			loader.logger = logger
		}
	}
}

// NewLoader wires a Loader for the given endpoint; an empty url selects the
// production sandbox endpoint.
func NewLoader(url string, options ...LoaderOption) *Loader {
	if url == "" {
		url = DefaultURL
	}
	loader := &Loader{
		url:        url,
		httpClient: &http.Client{Timeout: defaultFetchTimeout},
		logger:     zap.NewNop(),
		validate:   validator.New(),
	}
	for _, option := range options {
		if option != nil {
			option(loader)
		}
	}
	return loader
}

// Load returns the network config, fetching it on the first call. Any
// transport failure, non-success status, or invalid payload substitutes the
// embedded fallback transparently; Load never fails.
func (loader *Loader) Load(ctx context.Context) NetworkConfig {
	loader.once.Do(func() {
		loader.config = loader.fetch(ctx)
	})
	return loader.config
}

func (loader *Loader) fetch(ctx context.Context) NetworkConfig {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, loader.url, nil)
	if err != nil {
		loader.logger.Warn("config request build failed, using embedded configuration", zap.Error(err))
		return FallbackConfig()
	}
	request.Header.Set("Accept", "application/json")

	response, err := loader.httpClient.Do(request)
	if err != nil {
		loader.logger.Warn("config service not reachable, using embedded configuration", zap.Error(err))
		return FallbackConfig()
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		loader.logger.Warn("config service returned non-success status, using embedded configuration",
			zap.Int("status", response.StatusCode))
		return FallbackConfig()
	}

	var config NetworkConfig
	if err := json.NewDecoder(response.Body).Decode(&config); err != nil {
		loader.logger.Warn("config payload undecodable, using embedded configuration", zap.Error(err))
		return FallbackConfig()
	}
	if err := loader.validate.Struct(&config); err != nil {
		loader.logger.Warn("config payload invalid, using embedded configuration", zap.Error(err))
		return FallbackConfig()
	}
	return config
}
