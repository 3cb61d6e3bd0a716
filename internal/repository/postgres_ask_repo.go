package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cynco/irportal/internal/model"
)

const askColumns = `id, title, description, category, urgency, responses, views, icon, created_at`

// PostgresAskRepo はPostgreSQLを使用したAskリポジトリ。
type PostgresAskRepo struct {
	db *sqlx.DB
}

// NewPostgresAskRepo はPostgresAskRepoを生成する。
func NewPostgresAskRepo(db *sqlx.DB) *PostgresAskRepo {
	return &PostgresAskRepo{db: db}
}

// List は作成日時の新しい順に全件返す。
func (r *PostgresAskRepo) List(ctx context.Context) ([]model.Ask, error) {
	rows := []model.Ask{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+askColumns+` FROM asks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list asks: %w", err)
	}
	return rows, nil
}

// FindByID は指定IDのAskを取得する。見つからない場合はnilを返す。
func (r *PostgresAskRepo) FindByID(ctx context.Context, id int64) (*model.Ask, error) {
	var a model.Ask
	err := r.db.GetContext(ctx, &a, `SELECT `+askColumns+` FROM asks WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ask: %w", err)
	}
	return &a, nil
}

// Create はAskを作成する。回答数と閲覧数は0で始まる。
func (r *PostgresAskRepo) Create(ctx context.Context, in model.NewAsk) (*model.Ask, error) {
	var a model.Ask
	err := r.db.GetContext(ctx, &a,
		`INSERT INTO asks (title, description, category, urgency, icon)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+askColumns,
		in.Title, in.Description, in.Category, in.Urgency, in.Icon,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ask: %w", err)
	}
	return &a, nil
}

// Update は部分更新する。responsesとviewsは書き換えない。
func (r *PostgresAskRepo) Update(ctx context.Context, id int64, patch model.AskPatch) (*model.Ask, error) {
	var out *model.Ask
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var a model.Ask
		err := tx.GetContext(ctx, &a,
			`SELECT `+askColumns+` FROM asks WHERE id = $1 FOR UPDATE`, id)
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock ask: %w", err)
		}

		a.Apply(patch)
		if _, err := tx.ExecContext(ctx,
			`UPDATE asks SET title = $1, description = $2, category = $3, urgency = $4, icon = $5
			 WHERE id = $6`,
			a.Title, a.Description, a.Category, a.Urgency, a.Icon, id,
		); err != nil {
			return fmt.Errorf("failed to update ask: %w", err)
		}
		out = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete は削除する。回答はCASCADE削除される。
func (r *PostgresAskRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, "asks", id)
}

// IncrementViews は閲覧数をその場で1増やす。
func (r *PostgresAskRepo) IncrementViews(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE asks SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to increment ask views: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ AskRepository = (*PostgresAskRepo)(nil)
