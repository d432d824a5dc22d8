package handlers

import (
	"github.com/chris/credit-reconciliation/pkg/api"
	"github.com/chris/credit-reconciliation/pkg/handlers/balances"
	"github.com/chris/credit-reconciliation/pkg/handlers/ledger"
	"github.com/chris/credit-reconciliation/pkg/handlers/sessions"
	"github.com/chris/credit-reconciliation/pkg/handlers/webhooks"
)

// ApiHandler implements the generated server interface by composing the
// per-resource handlers.
type ApiHandler struct {
	*sessions.SessionsHandler
	*webhooks.WebhooksHandler
	*balances.BalancesHandler
	*ledger.LedgerHandler
}

// NewApiHandler creates a new ApiHandler.
func NewApiHandler(s *sessions.SessionsHandler, wh *webhooks.WebhooksHandler, b *balances.BalancesHandler, l *ledger.LedgerHandler) *ApiHandler {
	return &ApiHandler{
		SessionsHandler: s,
		WebhooksHandler: wh,
		BalancesHandler: b,
		LedgerHandler:   l,
	}
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)
