package marketapi

import (
	"github.com/MarkoPoloResearchLab/smartpay/internal/netconfig"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/catalog"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/chat"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/payment"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/txledger"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/wallet"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ListingPayload mirrors a catalog entry for the UI.
type ListingPayload struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	Description  string          `json:"description"`
	PriceMNEE    decimal.Decimal `json:"price_mnee"`
	Icon         string          `json:"icon"`
	Capabilities []string        `json:"capabilities"`
}

// CatalogEnvelope wraps the filtered listing payloads.
type CatalogEnvelope struct {
	Listings   []ListingPayload `json:"listings"`
	Categories []string         `json:"categories"`
}

// WalletPayload describes the wallet connection state and balance.
type WalletPayload struct {
	Connected   bool            `json:"connected"`
	Address     string          `json:"address"`
	BalanceMNEE decimal.Decimal `json:"balance_mnee"`
}

// WalletEnvelope wraps wallet payloads returned by the API endpoints.
type WalletEnvelope struct {
	Wallet WalletPayload `json:"wallet"`
}

// InvoicePayload breaks a purchase into the amounts shown to the buyer.
type InvoicePayload struct {
	PriceMNEE decimal.Decimal `json:"price_mnee"`
	FeeMNEE   decimal.Decimal `json:"fee_mnee"`
	TotalMNEE decimal.Decimal `json:"total_mnee"`
}

// CheckoutEnvelope is returned when a payment session is opened.
type CheckoutEnvelope struct {
	SessionID string         `json:"session_id"`
	Listing   ListingPayload `json:"listing"`
	Invoice   InvoicePayload `json:"invoice"`
}

// TransactionPayload mirrors a ledger record for the UI.
type TransactionPayload struct {
	ID                 string          `json:"id"`
	ServiceName        string          `json:"serviceName"`
	AmountMNEE         decimal.Decimal `json:"amount"`
	TimestampUnixMilli int64           `json:"timestamp"`
	Status             string          `json:"status"`
	TxHash             string          `json:"txHash"`
}

// TransactionsEnvelope wraps the payment history, most recent first.
type TransactionsEnvelope struct {
	Transactions []TransactionPayload `json:"transactions"`
}

// PaymentEnvelope is returned after a successful two-phase payment.
type PaymentEnvelope struct {
	Status      string             `json:"status"`
	Wallet      WalletPayload      `json:"wallet"`
	Transaction TransactionPayload `json:"transaction"`
	AccessToken string             `json:"access_token"`
}

// MessagePayload mirrors a transcript message for the UI.
type MessagePayload struct {
	ID                 string `json:"id"`
	Role               string `json:"role"`
	Text               string `json:"text"`
	TimestampUnixMilli int64  `json:"timestamp"`
}

// ChatEnvelope wraps a transcript slice plus the typing indicator state.
type ChatEnvelope struct {
	Messages []MessagePayload `json:"messages"`
	Pending  bool             `json:"pending"`
}

// ConfigEnvelope wraps the settlement network parameters.
type ConfigEnvelope struct {
	Config netconfig.NetworkConfig `json:"config"`
}

type checkoutRequest struct {
	ListingID string `json:"listing_id"`
}

type chatSendRequest struct {
	Text string `json:"text"`
}

func listingPayload(listing catalog.Listing) ListingPayload {
	return ListingPayload{
		ID:           listing.ID,
		Name:         listing.Name,
		Role:         listing.Role,
		Description:  listing.Description,
		PriceMNEE:    listing.PriceMNEE,
		Icon:         listing.Icon,
		Capabilities: listing.Capabilities,
	}
}

func walletPayload(state wallet.State) WalletPayload {
	return WalletPayload{
		Connected:   state.Connected,
		Address:     state.Address,
		BalanceMNEE: state.BalanceMNEE,
	}
}

func invoicePayload(invoice payment.Invoice) InvoicePayload {
	return InvoicePayload{
		PriceMNEE: invoice.PriceMNEE,
		FeeMNEE:   invoice.FeeMNEE,
		TotalMNEE: invoice.TotalMNEE,
	}
}

func transactionPayload(transaction txledger.Transaction) TransactionPayload {
	return TransactionPayload{
		ID:                 transaction.ID,
		ServiceName:        transaction.ServiceName,
		AmountMNEE:         transaction.AmountMNEE,
		TimestampUnixMilli: transaction.TimestampUnixMilli,
		Status:             string(transaction.Status),
		TxHash:             transaction.TxHash,
	}
}

func messagePayload(message chat.Message) MessagePayload {
	return MessagePayload{
		ID:                 message.ID,
		Role:               string(message.Role),
		Text:               message.Text,
		TimestampUnixMilli: message.Timestamp.UnixMilli(),
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
