package netconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const validConfigPayload = `{
	"approver": "02bed35e894cc41cc9879b4002ad03d33533b615c1",
	"decimals": 5,
	"feeAddress": "1H9wgHCTHjmgBw4PAbQ4PQBQHGFxHWhjbU",
	"burnAddress": "1HNuPi9Y7nMV6x8crJ6DnD1wJtkLym8EFE",
	"mintAddress": "1AZNdbFYBDFTAEgzZMfPzANxyNrpGJZAUY",
	"fees": [{"fee": 1000, "max": 1000000, "min": 10000}],
	"tokenId": "833a7720966a2a435db28d967385e8aa7284b6150eb"
}`

func TestLoadParsesRemoteConfig(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Accept") != "application/json" {
			test.Errorf("missing accept header")
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(validConfigPayload))
	}))
	defer server.Close()

	loader := NewLoader(server.URL)
	config := loader.Load(context.Background())
	if config.Decimals != 5 {
		test.Fatalf("expected decimals 5, got %d", config.Decimals)
	}
	if config.FeeAddress != "1H9wgHCTHjmgBw4PAbQ4PQBQHGFxHWhjbU" {
		test.Fatalf("unexpected fee address: %s", config.FeeAddress)
	}
	if len(config.Fees) != 1 || config.Fees[0].Fee != 1000 {
		test.Fatalf("unexpected fee tiers: %+v", config.Fees)
	}
}

func TestLoadFallsBackOnServerError(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := NewLoader(server.URL).Load(context.Background())
	fallback := FallbackConfig()
	if config.TokenID != fallback.TokenID {
		test.Fatalf("expected fallback token id, got %s", config.TokenID)
	}
}

func TestLoadFallsBackOnUnreachableEndpoint(test *testing.T) {
	test.Parallel()
	config := NewLoader("http://127.0.0.1:1/config").Load(context.Background())
	if config.Approver != FallbackConfig().Approver {
		test.Fatalf("expected fallback config, got %+v", config)
	}
}

func TestLoadFallsBackOnInvalidPayload(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"decimals": 5}`))
	}))
	defer server.Close()

	config := NewLoader(server.URL).Load(context.Background())
	if config.MintAddress != FallbackConfig().MintAddress {
		test.Fatalf("expected fallback config, got %+v", config)
	}
}

func TestLoadFetchesExactlyOnce(test *testing.T) {
	test.Parallel()
	var requestCount atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestCount.Add(1)
		_, _ = writer.Write([]byte(validConfigPayload))
	}))
	defer server.Close()

	loader := NewLoader(server.URL)
	for attempt := 0; attempt < 3; attempt++ {
		if config := loader.Load(context.Background()); config.Decimals != 5 {
			test.Fatalf("attempt %d: unexpected config %+v", attempt, config)
		}
	}
	if got := requestCount.Load(); got != 1 {
		test.Fatalf("expected one upstream fetch, got %d", got)
	}
}
