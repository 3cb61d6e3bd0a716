package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cynco/irportal/internal/model"
)

const stakeholderColumns = `id, name, title, type, shares, percentage, security_type, initials`

// PostgresStakeholderRepo はPostgreSQLを使用したキャップテーブルリポジトリ。
type PostgresStakeholderRepo struct {
	db *sqlx.DB
}

// NewPostgresStakeholderRepo はPostgresStakeholderRepoを生成する。
func NewPostgresStakeholderRepo(db *sqlx.DB) *PostgresStakeholderRepo {
	return &PostgresStakeholderRepo{db: db}
}

// List はID昇順で全件返す。
func (r *PostgresStakeholderRepo) List(ctx context.Context) ([]model.Stakeholder, error) {
	rows := []model.Stakeholder{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+stakeholderColumns+` FROM stakeholders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stakeholders: %w", err)
	}
	return rows, nil
}

// Create は株主を作成する。
func (r *PostgresStakeholderRepo) Create(ctx context.Context, in model.NewStakeholder) (*model.Stakeholder, error) {
	var s model.Stakeholder
	err := r.db.GetContext(ctx, &s,
		`INSERT INTO stakeholders (name, title, type, shares, percentage, security_type, initials)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+stakeholderColumns,
		in.Name, in.Title, in.Type, in.Shares, in.Percentage, in.SecurityType, in.Initials,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stakeholder: %w", err)
	}
	return &s, nil
}

// Update は部分更新する。
func (r *PostgresStakeholderRepo) Update(ctx context.Context, id int64, patch model.StakeholderPatch) (*model.Stakeholder, error) {
	var out *model.Stakeholder
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var s model.Stakeholder
		err := tx.GetContext(ctx, &s,
			`SELECT `+stakeholderColumns+` FROM stakeholders WHERE id = $1 FOR UPDATE`, id)
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock stakeholder: %w", err)
		}

		s.Apply(patch)
		if _, err := tx.ExecContext(ctx,
			`UPDATE stakeholders SET name = $1, title = $2, type = $3, shares = $4,
			   percentage = $5, security_type = $6, initials = $7
			 WHERE id = $8`,
			s.Name, s.Title, s.Type, s.Shares, s.Percentage, s.SecurityType, s.Initials, id,
		); err != nil {
			return fmt.Errorf("failed to update stakeholder: %w", err)
		}
		out = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// compile-time interface check
var _ StakeholderRepository = (*PostgresStakeholderRepo)(nil)
