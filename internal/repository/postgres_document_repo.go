package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cynco/irportal/internal/model"
)

const documentColumns = `id, name, description, category, type, date, url, source`

// PostgresDocumentRepo はPostgreSQLを使用したデータルーム書類リポジトリ。
type PostgresDocumentRepo struct {
	db *sqlx.DB
}

// NewPostgresDocumentRepo はPostgresDocumentRepoを生成する。
func NewPostgresDocumentRepo(db *sqlx.DB) *PostgresDocumentRepo {
	return &PostgresDocumentRepo{db: db}
}

// List は日付の新しい順に全件返す。
func (r *PostgresDocumentRepo) List(ctx context.Context) ([]model.Document, error) {
	rows := []model.Document{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+documentColumns+` FROM documents ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return rows, nil
}

// Create は書類を作成する。dateは作成時刻になる。
func (r *PostgresDocumentRepo) Create(ctx context.Context, in model.NewDocument) (*model.Document, error) {
	var d model.Document
	err := r.db.GetContext(ctx, &d,
		`INSERT INTO documents (name, description, category, type, url, source)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+documentColumns,
		in.Name, in.Description, in.Category, in.Type, in.URL, in.Source,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return &d, nil
}

// Delete は削除する。
func (r *PostgresDocumentRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, "documents", id)
}

// compile-time interface check
var _ DocumentRepository = (*PostgresDocumentRepo)(nil)
