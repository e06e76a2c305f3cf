package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/smartpay/pkg/catalog"
	"github.com/shopspring/decimal"
)

// Status enumerates the payment session lifecycle. Transitions run strictly
// forward Idle → Approving → Approved → Paying → Completed; Failed is
// reachable from Approving or Paying only and permits a full retry.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusApproving Status = "approving"
	StatusApproved  Status = "approved"
	StatusPaying    Status = "paying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Phase names the settlement primitive that failed.
type Phase string

const (
	PhaseNone    Phase = ""
	PhaseApprove Phase = "approve"
	PhasePay     Phase = "pay"
)

const (
	fallbackApproveMessage = "Approval denied. You must approve MNEE usage to proceed."
	fallbackPayMessage     = "Payment failed. Insufficient funds or network error."

	operationAuthorize = "authorize"
	operationSettle    = "settle"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	defaultSuccessDelay = time.Second
)

// Snapshot is a consistent view of the session state.
type Snapshot struct {
	ListingID    string
	Status       Status
	FailedPhase  Phase
	ErrorMessage string
	Invoice      Invoice
}

// Session orchestrates the two-phase approve/transfer purchase of a listing.
// At most one Pay invocation runs at a time; re-entry while a payment is in
// flight is rejected rather than queued.
type Session struct {
	mutex        sync.Mutex
	listing      catalog.Listing
	gateway      Gateway
	decimals     int32
	successDelay time.Duration
	logger       OperationLogger

	status       Status
	failedPhase  Phase
	errorMessage string
	closed       bool
}

// WithSuccessDelay sets the pause between settlement success and Pay
// returning, giving callers time to show the completed state.
func WithSuccessDelay(delay time.Duration) SessionOption {
	return func(session *Session) {
		if delay >= 0 {
			session.successDelay = delay
		}
	}
}

// NewSession wires a Session for one selected listing.
func NewSession(listing catalog.Listing, gateway Gateway, options ...SessionOption) (*Session, error) {
	if gateway == nil {
		return nil, fmt.Errorf("%w: gateway dependency is nil", ErrInvalidSessionConfig)
	}
	session := &Session{
		listing:      listing,
		gateway:      gateway,
		decimals:     DefaultDecimals,
		successDelay: defaultSuccessDelay,
		status:       StatusIdle,
	}
	for _, option := range options {
		if option != nil {
			option(session)
		}
	}
	return session, nil
}

// Listing returns the listing this session purchases.
func (session *Session) Listing() catalog.Listing {
	return session.listing
}

// Invoice returns the price breakdown authorized by this session.
func (session *Session) Invoice() Invoice {
	return Quote(session.listing.PriceMNEE, session.decimals)
}

// CurrentSnapshot returns a consistent view of the session state.
func (session *Session) CurrentSnapshot() Snapshot {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return Snapshot{
		ListingID:    session.listing.ID,
		Status:       session.status,
		FailedPhase:  session.failedPhase,
		ErrorMessage: session.errorMessage,
		Invoice:      session.Invoice(),
	}
}

// Close detaches the session. In-flight settlement calls are not aborted, but
// their eventual results no longer mutate session state.
func (session *Session) Close() {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.closed = true
}

// Pay runs the two-phase sequence: authorize the total (price plus fee), then
// settle the same amount. It is accepted only from Idle or Failed; a retry
// after a failure redoes both phases. Pay returns nil exactly once, after the
// success display delay, on the invocation that completed the purchase.
func (session *Session) Pay(ctx context.Context) error {
	if err := session.begin(); err != nil {
		return err
	}
	total := Total(session.listing.PriceMNEE, session.decimals)

	err := session.gateway.Authorize(ctx, total)
	session.logOperation(ctx, operationAuthorize, total, PhaseApprove, err)
	if err != nil {
		return session.fail(ctx, PhaseApprove, ErrAuthorizationDenied, err)
	}
	if err := session.advance(ctx, PhaseApprove, StatusApproved, StatusPaying); err != nil {
		return err
	}

	err = session.gateway.Settle(ctx, total)
	session.logOperation(ctx, operationSettle, total, PhasePay, err)
	if err != nil {
		return session.fail(ctx, PhasePay, ErrSettlementFailed, err)
	}
	if err := session.advance(ctx, PhasePay, StatusCompleted); err != nil {
		return err
	}

	session.waitForDisplay(ctx)
	return nil
}

// begin accepts a new payment from Idle or Failed and clears any prior error
// state before entering Approving.
func (session *Session) begin() error {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.closed {
		return ErrSessionClosed
	}
	switch session.status {
	case StatusIdle, StatusFailed:
	case StatusCompleted:
		return ErrSessionCompleted
	default:
		return ErrPaymentInFlight
	}
	session.status = StatusApproving
	session.failedPhase = PhaseNone
	session.errorMessage = ""
	return nil
}

// advance applies forward transitions after a suspension point. A session
// closed while the call was in flight is left untouched; a context cancelled
// mid-flight lands the session in Failed so a later Pay with a live context
// can retry from scratch.
func (session *Session) advance(ctx context.Context, phase Phase, statuses ...Status) error {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.closed {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		session.markFailedLocked(phase, phaseFallbackMessage(phase))
		return err
	}
	for _, status := range statuses {
		session.status = status
	}
	return nil
}

// fail records the failed phase and a user-facing message. A cancelled context
// is reported as the context error, never as a denial or settlement sentinel.
func (session *Session) fail(ctx context.Context, phase Phase, sentinel error, cause error) error {
	message := phaseFallbackMessage(phase)
	if cause != nil && strings.TrimSpace(cause.Error()) != "" {
		message = cause.Error()
	}
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.closed {
		return ErrSessionClosed
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		session.markFailedLocked(phase, phaseFallbackMessage(phase))
		return ctxErr
	}
	session.markFailedLocked(phase, message)
	return fmt.Errorf("%w: %s", sentinel, message)
}

func (session *Session) markFailedLocked(phase Phase, message string) {
	session.status = StatusFailed
	session.failedPhase = phase
	session.errorMessage = message
}

func phaseFallbackMessage(phase Phase) string {
	if phase == PhaseApprove {
		return fallbackApproveMessage
	}
	return fallbackPayMessage
}

func (session *Session) waitForDisplay(ctx context.Context) {
	if session.successDelay <= 0 {
		return
	}
	timer := time.NewTimer(session.successDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (session *Session) logOperation(ctx context.Context, operation string, amount decimal.Decimal, phase Phase, err error) {
	if session.logger == nil {
		return
	}
	entry := OperationLog{
		Operation: operation,
		ListingID: session.listing.ID,
		Amount:    amount,
		Phase:     phase,
		Status:    operationStatusOK,
		Error:     err,
	}
	if err != nil {
		entry.Status = operationStatusError
	}
	session.logger.LogOperation(ctx, entry)
}
