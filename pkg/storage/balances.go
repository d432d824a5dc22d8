package storage

import (
	"context"

	"github.com/chris/credit-reconciliation/pkg/models"
)

// BalanceReader defines the interface for reading user balances.
type BalanceReader interface {
	// GetBalance retrieves a user's credit balance.
	GetBalance(ctx context.Context, userID string) (*models.UserBalance, error)
}
