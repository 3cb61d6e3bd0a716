package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cynco/irportal/internal/model"
)

const responseColumns = `id, ask_id, author, content, created_at`

// PostgresResponseRepo はPostgreSQLを使用した回答リポジトリ。
type PostgresResponseRepo struct {
	db *sqlx.DB
}

// NewPostgresResponseRepo はPostgresResponseRepoを生成する。
func NewPostgresResponseRepo(db *sqlx.DB) *PostgresResponseRepo {
	return &PostgresResponseRepo{db: db}
}

// ListByAsk は指定Askの回答を作成日時の新しい順に返す。
func (r *PostgresResponseRepo) ListByAsk(ctx context.Context, askID int64) ([]model.Response, error) {
	rows := []model.Response{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+responseColumns+` FROM responses WHERE ask_id = $1 ORDER BY created_at DESC, id DESC`,
		askID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return rows, nil
}

// Create は回答を作成し、Askの回答数を件数から再計算する。
// Ask行をFOR UPDATEでロックするため、同時に作成された回答の件数も取りこぼさない。
func (r *PostgresResponseRepo) Create(ctx context.Context, in model.NewResponse) (*model.Response, error) {
	var out model.Response
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var askID int64
		err := tx.GetContext(ctx, &askID, `SELECT id FROM asks WHERE id = $1 FOR UPDATE`, in.AskID)
		if isNoRows(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock ask: %w", err)
		}

		if err := tx.GetContext(ctx, &out,
			`INSERT INTO responses (ask_id, author, content)
			 VALUES ($1, $2, $3)
			 RETURNING `+responseColumns,
			in.AskID, in.Author, in.Content,
		); err != nil {
			return fmt.Errorf("failed to create response: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE asks SET responses = (SELECT count(*) FROM responses WHERE ask_id = $1) WHERE id = $1`,
			in.AskID,
		); err != nil {
			return fmt.Errorf("failed to recount responses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// compile-time interface check
var _ ResponseRepository = (*PostgresResponseRepo)(nil)
