package catalog

import "github.com/shopspring/decimal"

// Listing is an immutable catalog entry describing a purchasable agent service.
type Listing struct {
	ID                string
	Name              string
	Role              string
	Description       string
	PriceMNEE         decimal.Decimal
	Icon              string
	SystemInstruction string
	Capabilities      []string
}

var listings = []Listing{
	{
		ID:                "agent-defi-1",
		Name:              "Nova",
		Role:              "DeFi Yield Optimizer",
		Description:       "Automates yield farming strategies across MNEE pools to maximize returns while actively managing risk.",
		PriceMNEE:         decimal.RequireFromString("8.50"),
		Icon:              "LineChart",
		SystemInstruction: "You are YieldBot, an automated DeFi portfolio manager. You specialize in stablecoin yield strategies, specifically for MNEE. You analyze APYs, TVL, and impermanent loss risks to optimize returns.",
		Capabilities:      []string{"Yield Farming", "Liquidity Provision", "Risk Management"},
	},
	{
		ID:                "agent-fin-1",
		Name:              "Atlas",
		Role:              "Financial Analyst",
		Description:       "Expert in analyzing market trends, tokenomics, and providing investment summaries based on data.",
		PriceMNEE:         decimal.RequireFromString("5.00"),
		Icon:              "LineChart",
		SystemInstruction: "You are Ledger, a senior financial analyst. You provide concise, data-driven insights about markets and economics. You are professional, slightly cautious, and use financial terminology correctly.",
		Capabilities:      []string{"Market Analysis", "Risk Assessment", "Portfolio Review"},
	},
	{
		ID:                "agent-dev-1",
		Name:              "Pulse",
		Role:              "Smart Contract Auditor",
		Description:       "Specializes in reviewing Solidity code for vulnerabilities, gas optimization, and logic errors.",
		PriceMNEE:         decimal.RequireFromString("12.50"),
		Icon:              "ShieldCheck",
		SystemInstruction: "You are Syntax, an expert smart contract security auditor. You analyze code snippets for re-entrancy attacks, overflow issues, and gas optimizations. You speak in a technical, precise manner.",
		Capabilities:      []string{"Security Audit", "Gas Optimization", "Solidity Help"},
	},
	{
		ID:                "agent-create-1",
		Name:              "Echo",
		Role:              "Creative Copywriter",
		Description:       "Generates compelling marketing copy, tweet threads, and blog posts tailored for Web3 audiences.",
		PriceMNEE:         decimal.RequireFromString("2.00"),
		Icon:              "Feather",
		SystemInstruction: "You are Muse, a creative copywriter for Web3 brands. Your tone is engaging, modern, and viral-ready. You use emojis effectively and understand crypto-twitter culture.",
		Capabilities:      []string{"Tweet Threads", "Blog Posts", "Ad Copy"},
	},
	{
		ID:                "agent-qa-1",
		Name:              "Oracle",
		Role:              "General Assistant",
		Description:       "Your go-to assistant for general knowledge, scheduling planning, and summarization.",
		PriceMNEE:         decimal.RequireFromString("1.00"),
		Icon:              "Bot",
		SystemInstruction: "You are Oracle, a helpful and polite general purpose AI assistant. You answer questions clearly and efficiently.",
		Capabilities:      []string{"Research", "Summarization", "Planning"},
	},
}

// Listings returns the static catalog. Callers receive a copy and cannot
// mutate the catalog itself.
func Listings() []Listing {
	result := make([]Listing, len(listings))
	copy(result, listings)
	return result
}

// FindListing returns the listing with the given id.
func FindListing(listingID string) (Listing, bool) {
	for _, listing := range listings {
		if listing.ID == listingID {
			return listing, true
		}
	}
	return Listing{}, false
}
