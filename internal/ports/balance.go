package ports

import "context"

// BalanceProvider reads the wallet's spendable balance.
type BalanceProvider interface {
	USDCBalance(ctx context.Context) (float64, error)
}
