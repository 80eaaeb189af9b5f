package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrReadOnlyTransaction は読み取り専用トランザクション内で書き込みトランザクションを要求した場合に返却されます。
var ErrReadOnlyTransaction = errors.New("postgres: read-write transaction requested inside read-only transaction")

type txContextKey struct{}

// txScope はコンテキストに保持する実行中トランザクションです。
type txScope struct {
	tx   pgx.Tx
	mode pgx.TxAccessMode
}

// txStarter はトランザクションを開始できる接続です。pgxpool.Pool と pgxmock が満たします。
type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TransactionManager はリクエスト単位のトランザクションを管理します。
// 検証と書き込みを同じトランザクションで行い、入れ子の呼び出しは外側のトランザクションを再利用します。
type TransactionManager struct {
	pool   txStarter
	logger *zap.Logger
}

// NewTransactionManager は TransactionManager を生成します。
func NewTransactionManager(pool txStarter, logger *zap.Logger) *TransactionManager {
	if pool == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionManager{pool: pool, logger: logger.Named("tx")}
}

// WithinReadOnly は読み取り専用トランザクションで fn を実行します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

// WithinReadWrite は読み書きトランザクションで fn を実行します。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.within(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite}, fn)
}

func (m *TransactionManager) within(ctx context.Context, opts pgx.TxOptions, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("postgres: transaction function is required")
	}

	if scope, ok := scopeFromContext(ctx); ok {
		if scope.mode == pgx.ReadOnly && opts.AccessMode == pgx.ReadWrite {
			return ErrReadOnlyTransaction
		}
		return fn(ctx)
	}

	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	finished := false
	defer func() {
		// fn が panic した場合のみここに到達します。
		if !finished {
			_ = m.rollback(ctx, tx, opts.AccessMode)
		}
	}()

	if err := fn(contextWithScope(ctx, txScope{tx: tx, mode: opts.AccessMode})); err != nil {
		finished = true
		if rbErr := m.rollback(ctx, tx, opts.AccessMode); rbErr != nil {
			return errors.Join(err, fmt.Errorf("postgres: rollback: %w", rbErr))
		}
		return err
	}

	finished = true
	if err := tx.Commit(ctx); err != nil {
		if !errors.Is(err, pgx.ErrTxClosed) {
			if rbErr := m.rollback(ctx, tx, opts.AccessMode); rbErr != nil {
				return errors.Join(fmt.Errorf("postgres: commit: %w", err), fmt.Errorf("postgres: rollback after commit failure: %w", rbErr))
			}
		}
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// rollback はキャンセル済みのコンテキストでもロールバックを送出し、失敗をログに残します。
func (m *TransactionManager) rollback(ctx context.Context, tx pgx.Tx, mode pgx.TxAccessMode) error {
	err := tx.Rollback(context.WithoutCancel(ctx))
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	m.logger.Warn("transaction rollback failed", zap.String("access_mode", string(mode)), zap.Error(err))
	return err
}

func contextWithScope(ctx context.Context, scope txScope) context.Context {
	return context.WithValue(ctx, txContextKey{}, scope)
}

func scopeFromContext(ctx context.Context) (txScope, bool) {
	if ctx == nil {
		return txScope{}, false
	}
	scope, ok := ctx.Value(txContextKey{}).(txScope)
	return scope, ok
}

// QueryerFromContext は実行中のトランザクションがあればそれを、なければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if scope, ok := scopeFromContext(ctx); ok {
		return scope.tx
	}
	return fallback
}

// Queryer は pgx.Tx と pgxpool.Pool に共通するクエリ実行インターフェースです。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
