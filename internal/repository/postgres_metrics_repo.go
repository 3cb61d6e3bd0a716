package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cynco/irportal/internal/model"
)

const metricsColumns = `id, mrr, runway, burn_rate, active_users, cac, ltv, churn,
	team_size, open_positions, cash_balance, last_fundraise, updated_at`

// PostgresMetricsRepo はPostgreSQLを使用したKPIリポジトリ。
// metricsテーブルは高々1行のみを保持する。
type PostgresMetricsRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresMetricsRepo はPostgresMetricsRepoを生成する。
func NewPostgresMetricsRepo(db *sqlx.DB) *PostgresMetricsRepo {
	return &PostgresMetricsRepo{db: db, now: time.Now}
}

// Get はKPIを取得する。行が無い場合はnilを返す。
func (r *PostgresMetricsRepo) Get(ctx context.Context) (*model.Metrics, error) {
	var m model.Metrics
	err := r.db.GetContext(ctx, &m,
		`SELECT `+metricsColumns+` FROM metrics ORDER BY id LIMIT 1`)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	return &m, nil
}

// Update はパッチを適用して保存する。
// 初回作成の競合で2行目が作られないよう、テーブルを排他ロックしてから読み出す。
func (r *PostgresMetricsRepo) Update(ctx context.Context, patch model.MetricsPatch) (*model.Metrics, error) {
	var out model.Metrics
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `LOCK TABLE metrics IN EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("failed to lock metrics: %w", err)
		}

		now := r.now()
		var current model.Metrics
		err := tx.GetContext(ctx, &current,
			`SELECT `+metricsColumns+` FROM metrics ORDER BY id LIMIT 1`)
		exists := true
		if isNoRows(err) {
			exists = false
			current = model.DefaultMetrics(now)
		} else if err != nil {
			return fmt.Errorf("failed to read metrics: %w", err)
		}

		current.Apply(patch)
		current.UpdatedAt = now

		if exists {
			err = tx.GetContext(ctx, &out,
				`UPDATE metrics SET mrr = $1, runway = $2, burn_rate = $3, active_users = $4,
				   cac = $5, ltv = $6, churn = $7, team_size = $8, open_positions = $9,
				   cash_balance = $10, last_fundraise = $11, updated_at = $12
				 WHERE id = $13
				 RETURNING `+metricsColumns,
				current.MRR, current.Runway, current.BurnRate, current.ActiveUsers,
				current.CAC, current.LTV, current.Churn, current.TeamSize, current.OpenPositions,
				current.CashBalance, current.LastFundraise, current.UpdatedAt, current.ID,
			)
		} else {
			err = tx.GetContext(ctx, &out,
				`INSERT INTO metrics (mrr, runway, burn_rate, active_users, cac, ltv, churn,
				   team_size, open_positions, cash_balance, last_fundraise, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				 RETURNING `+metricsColumns,
				current.MRR, current.Runway, current.BurnRate, current.ActiveUsers,
				current.CAC, current.LTV, current.Churn, current.TeamSize, current.OpenPositions,
				current.CashBalance, current.LastFundraise, current.UpdatedAt,
			)
		}
		if err != nil {
			return fmt.Errorf("failed to save metrics: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// compile-time interface check
var _ MetricsRepository = (*PostgresMetricsRepo)(nil)
