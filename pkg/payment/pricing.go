package payment

import "github.com/shopspring/decimal"

// The platform keeps a 5% markup on every listing price. The combined amount
// is authorized and settled in a single approval step.
var platformFeeRate = decimal.New(5, -2)

// DefaultDecimals matches the token's decimal precision when no network
// config is available.
const DefaultDecimals int32 = 2

// Invoice breaks a listing price into the amounts shown to the buyer.
type Invoice struct {
	PriceMNEE decimal.Decimal
	FeeMNEE   decimal.Decimal
	TotalMNEE decimal.Decimal
}

// Quote prices a purchase: fee is price times the platform rate, total is
// price plus fee, both rounded to the configured token precision.
func Quote(price decimal.Decimal, decimals int32) Invoice {
	fee := price.Mul(platformFeeRate).Round(decimals)
	return Invoice{
		PriceMNEE: price,
		FeeMNEE:   fee,
		TotalMNEE: price.Add(fee).Round(decimals),
	}
}

// Total returns the amount authorized and settled for a listing price.
func Total(price decimal.Decimal, decimals int32) decimal.Decimal {
	return Quote(price, decimals).TotalMNEE
}
