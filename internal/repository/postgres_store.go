package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// NewPostgresStore はPostgreSQLを使うStoreを生成する。
// スキーマはdatabase.RunMigrationsで事前に作成しておくこと。
func NewPostgresStore(db *sqlx.DB) *Store {
	return &Store{
		Principals:   NewPostgresPrincipalRepo(db),
		Sessions:     NewPostgresSessionRepo(db),
		Metrics:      NewPostgresMetricsRepo(db),
		Updates:      NewPostgresUpdateRepo(db),
		Stakeholders: NewPostgresStakeholderRepo(db),
		Milestones:   NewPostgresMilestoneRepo(db),
		Documents:    NewPostgresDocumentRepo(db),
		Asks:         NewPostgresAskRepo(db),
		Responses:    NewPostgresResponseRepo(db),
		Backend:      "postgres",
		ping:         db.PingContext,
		close:        db.Close,
	}
}

// withTx はトランザクション内でfnを実行する。fnがエラーを返した場合はロールバックする。
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// deleteByID は指定テーブルの行を削除し、削除できたかどうかを返す。
// tableはパッケージ内の定数のみを渡すこと。
func deleteByID(ctx context.Context, db *sqlx.DB, table string, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
