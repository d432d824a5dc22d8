package ledger

import (
	"fmt"
	"net/http"

	"github.com/chris/credit-reconciliation/pkg/api"
	"github.com/chris/credit-reconciliation/pkg/handlers/respond"
	"github.com/chris/credit-reconciliation/pkg/mapping"
	"github.com/chris/credit-reconciliation/pkg/storage"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// LedgerHandler holds the dependencies for ledger-related handlers.
type LedgerHandler struct {
	Store storage.LedgerReader
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(store storage.LedgerReader) *LedgerHandler {
	return &LedgerHandler{Store: store}
}

func (h *LedgerHandler) ListLedgerEntries(w http.ResponseWriter, r *http.Request, params api.ListLedgerEntriesParams) {
	limit := int32(defaultLimit)
	if params.Limit != nil {
		if *params.Limit < 1 {
			respond.Error(w, http.StatusBadRequest, respond.CodeInvalidParam, "limit must be at least 1")
			return
		}
		limit = int32(min(*params.Limit, maxLimit))
	}

	domainEntries, err := h.Store.ListLedgerEntries(r.Context(), limit)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, fmt.Sprintf("Failed to retrieve ledger entries: %v", err))
		return
	}

	apiEntries := make([]*api.LedgerEntry, len(domainEntries))
	for i, entry := range domainEntries {
		apiEntries[i] = mapping.ToApiLedgerEntry(&entry)
	}

	respond.JSON(w, http.StatusOK, apiEntries)
}
