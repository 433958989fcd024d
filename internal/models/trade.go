package models

import "strings"

// Trade identifies a home-service trade with its own scoring profile
type Trade string

const (
	TradeRoofing    Trade = "roofing"
	TradeHVAC       Trade = "hvac"
	TradeSiding     Trade = "siding"
	TradeElectrical Trade = "electrical"
)

// Trades lists all recognized trades. Adding a trade means adding a
// constant here plus a scorer entry in internal/scoring/trades.go.
var Trades = []Trade{TradeRoofing, TradeHVAC, TradeSiding, TradeElectrical}

// ParseTrade normalizes a trade name. Returns false for unknown trades.
func ParseTrade(name string) (Trade, bool) {
	t := Trade(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Trades {
		if t == known {
			return t, true
		}
	}
	return "", false
}
