package config

import (
	"os"
	"strings"
)

// The fulfillment flow has shipped in two lineages that disagree on when
// stock is committed and on whether DC can dispatch directly. Both stay
// selectable per deployment; neither is hardcoded.

// StockCommitPolicy returns when order stock is debited.
//
// Set via env:
// - FULFILLMENT_STOCK_POLICY=CREATION  debit at order creation (default)
// - FULFILLMENT_STOCK_POLICY=DISPATCH  debit at dispatch only
func StockCommitPolicy() string {
	v := strings.ToUpper(strings.TrimSpace(os.Getenv("FULFILLMENT_STOCK_POLICY")))
	if v == "DISPATCH" {
		return "DISPATCH"
	}
	return "CREATION"
}

// AllowDirectDCDispatch reports whether the permissive transition table
// (DC -> Dispatched without an Invoice step) is enabled.
//
// Set via env:
// - FULFILLMENT_ALLOW_DC_DISPATCH=true
func AllowDirectDCDispatch() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("FULFILLMENT_ALLOW_DC_DISPATCH")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
