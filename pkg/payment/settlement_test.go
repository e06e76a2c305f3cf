package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSimulatorAuthorizeDeniedBelowThreshold(test *testing.T) {
	test.Parallel()
	simulator := NewSimulator(
		WithSettlementDelay(0),
		WithRandomSource(func() float64 { return 0.05 }),
	)
	err := simulator.Authorize(context.Background(), decimal.RequireFromString("5.25"))
	if !errors.Is(err, ErrUserDenied) {
		test.Fatalf("expected ErrUserDenied, got %v", err)
	}
}

func TestSimulatorAuthorizeSucceedsAboveThreshold(test *testing.T) {
	test.Parallel()
	simulator := NewSimulator(
		WithSettlementDelay(0),
		WithRandomSource(func() float64 { return 0.95 }),
	)
	if err := simulator.Authorize(context.Background(), decimal.RequireFromString("5.25")); err != nil {
		test.Fatalf("authorize: %v", err)
	}
}

func TestSimulatorSettleFailsBelowThreshold(test *testing.T) {
	test.Parallel()
	simulator := NewSimulator(
		WithSettlementDelay(0),
		WithRandomSource(func() float64 { return 0.05 }),
	)
	err := simulator.Settle(context.Background(), decimal.RequireFromString("5.25"))
	if !errors.Is(err, ErrInsufficientFunds) {
		test.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestSimulatorZeroRatesNeverFail(test *testing.T) {
	test.Parallel()
	simulator := NewSimulator(
		WithSettlementDelay(0),
		WithApproveFailureRate(0),
		WithSettleFailureRate(0),
		WithRandomSource(func() float64 { return 0 }),
	)
	amount := decimal.RequireFromString("1.05")
	for attempt := 0; attempt < 10; attempt++ {
		if err := simulator.Authorize(context.Background(), amount); err != nil {
			test.Fatalf("authorize attempt %d: %v", attempt, err)
		}
		if err := simulator.Settle(context.Background(), amount); err != nil {
			test.Fatalf("settle attempt %d: %v", attempt, err)
		}
	}
}

func TestSimulatorHonorsCancelledContext(test *testing.T) {
	test.Parallel()
	simulator := NewSimulator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := simulator.Authorize(ctx, decimal.RequireFromString("1.00")); !errors.Is(err, context.Canceled) {
		test.Fatalf("expected context.Canceled, got %v", err)
	}
}
