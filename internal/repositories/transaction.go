package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TxManagerInterface interface {
	RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type TxManager struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxManager: lockTimeout > 0 ограничивает ожидание FOR UPDATE внутри
// транзакции; по истечении операция получает ConflictError.
func NewTxManager(pool *pgxpool.Pool, lockTimeout time.Duration) TxManagerInterface {
	return &TxManager{pool: pool, lockTimeout: lockTimeout}
}

func lockTimeoutStatement(d time.Duration) string {
	return fmt.Sprintf("SET LOCAL lock_timeout = %d", d.Milliseconds())
}

// RunInTransaction выполняет fn в одной транзакции. Ошибка fn откатывает
// транзакцию и возвращается без изменений; паника откатывает и пробрасывается.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}

	if m.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, lockTimeoutStatement(m.lockTimeout)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("не удалось установить lock_timeout: %w", err)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			// Ошибка отката не важнее исходной.
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
			if err != nil {
				err = fmt.Errorf("ошибка при коммите транзакции: %w", translatePgError(err))
			}
		}
	}()

	err = fn(tx)
	return err
}
