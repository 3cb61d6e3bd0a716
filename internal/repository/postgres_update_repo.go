package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cynco/irportal/internal/model"
)

const updateColumns = `id, title, content, author, type, attachments, comments, views, created_at`

// PostgresUpdateRepo はPostgreSQLを使用した会社アップデートリポジトリ。
type PostgresUpdateRepo struct {
	db *sqlx.DB
}

// NewPostgresUpdateRepo はPostgresUpdateRepoを生成する。
func NewPostgresUpdateRepo(db *sqlx.DB) *PostgresUpdateRepo {
	return &PostgresUpdateRepo{db: db}
}

// List は作成日時の新しい順に全件返す。
func (r *PostgresUpdateRepo) List(ctx context.Context) ([]model.CompanyUpdate, error) {
	rows := []model.CompanyUpdate{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+updateColumns+` FROM updates ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list updates: %w", err)
	}
	return rows, nil
}

// Create は会社アップデートを作成する。カウンタは0で始まる。
func (r *PostgresUpdateRepo) Create(ctx context.Context, in model.NewCompanyUpdate) (*model.CompanyUpdate, error) {
	var u model.CompanyUpdate
	err := r.db.GetContext(ctx, &u,
		`INSERT INTO updates (title, content, author, type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+updateColumns,
		in.Title, in.Content, in.Author, in.Type,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create update: %w", err)
	}
	return &u, nil
}

// Update は部分更新する。行ロック下で読み出し、マージ結果を書き戻す。
func (r *PostgresUpdateRepo) Update(ctx context.Context, id int64, patch model.CompanyUpdatePatch) (*model.CompanyUpdate, error) {
	var out *model.CompanyUpdate
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var u model.CompanyUpdate
		err := tx.GetContext(ctx, &u,
			`SELECT `+updateColumns+` FROM updates WHERE id = $1 FOR UPDATE`, id)
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock update: %w", err)
		}

		u.Apply(patch)
		if _, err := tx.ExecContext(ctx,
			`UPDATE updates SET title = $1, content = $2, author = $3, type = $4 WHERE id = $5`,
			u.Title, u.Content, u.Author, u.Type, id,
		); err != nil {
			return fmt.Errorf("failed to update update: %w", err)
		}
		out = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete は削除する。
func (r *PostgresUpdateRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, "updates", id)
}

// compile-time interface check
var _ UpdateRepository = (*PostgresUpdateRepo)(nil)
