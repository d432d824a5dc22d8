package balances

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/chris/credit-reconciliation/pkg/handlers/respond"
	"github.com/chris/credit-reconciliation/pkg/mapping"
	"github.com/chris/credit-reconciliation/pkg/storage"
)

// BalancesHandler holds the dependencies for balance-related handlers.
type BalancesHandler struct {
	Store storage.BalanceReader
}

// NewBalancesHandler creates a new BalancesHandler.
func NewBalancesHandler(store storage.BalanceReader) *BalancesHandler {
	return &BalancesHandler{Store: store}
}

// GetBalanceByUserId handles the logic for retrieving a user's credit balance.
func (h *BalancesHandler) GetBalanceByUserId(w http.ResponseWriter, r *http.Request, userId string) {
	balance, err := h.Store.GetBalance(r.Context(), userId)
	if err != nil {
		if errors.Is(err, storage.ErrBalanceNotFound) {
			respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "Balance not found")
		} else {
			respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, fmt.Sprintf("Failed to retrieve balance: %v", err))
		}
		return
	}

	respond.JSON(w, http.StatusOK, mapping.ToApiBalance(balance))
}
