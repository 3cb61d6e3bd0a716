package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cynco/irportal/internal/model"
)

const principalColumns = `id, email, first_name, last_name, user_type, created_at, updated_at`

// PostgresPrincipalRepo はPostgreSQLを使用した利用者リポジトリ。
type PostgresPrincipalRepo struct {
	db *sqlx.DB
}

// NewPostgresPrincipalRepo はPostgresPrincipalRepoを生成する。
func NewPostgresPrincipalRepo(db *sqlx.DB) *PostgresPrincipalRepo {
	return &PostgresPrincipalRepo{db: db}
}

// Upsert は利用者を作成、または既存行を更新する。created_atは維持する。
func (r *PostgresPrincipalRepo) Upsert(ctx context.Context, p *model.Principal) (*model.Principal, error) {
	var row model.Principal
	err := r.db.GetContext(ctx, &row,
		`INSERT INTO users (id, email, first_name, last_name, user_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		   email = EXCLUDED.email,
		   first_name = EXCLUDED.first_name,
		   last_name = EXCLUDED.last_name,
		   user_type = EXCLUDED.user_type,
		   updated_at = now()
		 RETURNING `+principalColumns,
		p.ID, p.Email, p.FirstName, p.LastName, p.Role,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert principal: %w", err)
	}
	return &row, nil
}

// FindByID は指定IDの利用者を取得する。見つからない場合はnilを返す。
func (r *PostgresPrincipalRepo) FindByID(ctx context.Context, id string) (*model.Principal, error) {
	var row model.Principal
	err := r.db.GetContext(ctx, &row,
		`SELECT `+principalColumns+` FROM users WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find principal by ID: %w", err)
	}
	return &row, nil
}

// compile-time interface check
var _ PrincipalRepository = (*PostgresPrincipalRepo)(nil)
