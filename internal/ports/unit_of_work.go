package ports

import "context"

// Tx is an opaque transaction handle owned by infrastructure (a *gorm.DB for
// the sqlite adapters).
type Tx interface{}

// UnitOfWork is the transaction boundary of a use case: fn returning an error
// rolls back, nil commits. Repositories called with the ctx passed to fn join
// the transaction.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) Tx {
	if ctx == nil {
		return nil
	}
	return ctx.Value(txKey{})
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	return TxFromContext(ctx) != nil
}
