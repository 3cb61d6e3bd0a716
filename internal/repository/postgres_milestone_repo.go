package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cynco/irportal/internal/model"
)

const milestoneColumns = `id, title, description, date, status, amount, investors, icon`

// PostgresMilestoneRepo はPostgreSQLを使用した資金調達タイムラインリポジトリ。
type PostgresMilestoneRepo struct {
	db *sqlx.DB
}

// NewPostgresMilestoneRepo はPostgresMilestoneRepoを生成する。
func NewPostgresMilestoneRepo(db *sqlx.DB) *PostgresMilestoneRepo {
	return &PostgresMilestoneRepo{db: db}
}

// List はID昇順で全件返す。
func (r *PostgresMilestoneRepo) List(ctx context.Context) ([]model.Milestone, error) {
	rows := []model.Milestone{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+milestoneColumns+` FROM milestones ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	return rows, nil
}

// Create はマイルストーンを作成する。
func (r *PostgresMilestoneRepo) Create(ctx context.Context, in model.NewMilestone) (*model.Milestone, error) {
	var m model.Milestone
	err := r.db.GetContext(ctx, &m,
		`INSERT INTO milestones (title, description, date, status, amount, investors, icon)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+milestoneColumns,
		in.Title, in.Description, in.Date, in.Status, in.Amount, in.Investors, in.Icon,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milestone: %w", err)
	}
	return &m, nil
}

// Update は部分更新する。amountとinvestorsはnullへの更新も受け付ける。
func (r *PostgresMilestoneRepo) Update(ctx context.Context, id int64, patch model.MilestonePatch) (*model.Milestone, error) {
	var out *model.Milestone
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var m model.Milestone
		err := tx.GetContext(ctx, &m,
			`SELECT `+milestoneColumns+` FROM milestones WHERE id = $1 FOR UPDATE`, id)
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock milestone: %w", err)
		}

		m.Apply(patch)
		if _, err := tx.ExecContext(ctx,
			`UPDATE milestones SET title = $1, description = $2, date = $3, status = $4,
			   amount = $5, investors = $6, icon = $7
			 WHERE id = $8`,
			m.Title, m.Description, m.Date, m.Status, m.Amount, m.Investors, m.Icon, id,
		); err != nil {
			return fmt.Errorf("failed to update milestone: %w", err)
		}
		out = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete は削除する。
func (r *PostgresMilestoneRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, "milestones", id)
}

// compile-time interface check
var _ MilestoneRepository = (*PostgresMilestoneRepo)(nil)
