package model

import "time"

// DefaultLastFundraise はメトリクス未作成時に補完される直近ラウンド名。
const DefaultLastFundraise = "Pre-seed"

// Metrics は会社の財務・運用KPIを表すシングルトンレコード。
// 行は高々1つしか存在せず、初回更新時にゼロ値のデフォルトから生成される。
type Metrics struct {
	ID            int64     `json:"id" db:"id"`
	MRR           int       `json:"mrr" db:"mrr"`
	Runway        int       `json:"runway" db:"runway"`
	BurnRate      int       `json:"burnRate" db:"burn_rate"`
	ActiveUsers   int       `json:"activeUsers" db:"active_users"`
	CAC           int       `json:"cac" db:"cac"`
	LTV           int       `json:"ltv" db:"ltv"`
	Churn         float64   `json:"churn" db:"churn"`
	TeamSize      int       `json:"teamSize" db:"team_size"`
	OpenPositions int       `json:"openPositions" db:"open_positions"`
	CashBalance   int       `json:"cashBalance" db:"cash_balance"`
	LastFundraise string    `json:"lastFundraise" db:"last_fundraise"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// MetricsPatch はメトリクスの部分更新を表す。nilのフィールドは既存値を維持する。
type MetricsPatch struct {
	MRR           *int     `json:"mrr"`
	Runway        *int     `json:"runway"`
	BurnRate      *int     `json:"burnRate"`
	ActiveUsers   *int     `json:"activeUsers"`
	CAC           *int     `json:"cac"`
	LTV           *int     `json:"ltv"`
	Churn         *float64 `json:"churn"`
	TeamSize      *int     `json:"teamSize"`
	OpenPositions *int     `json:"openPositions"`
	CashBalance   *int     `json:"cashBalance"`
	LastFundraise *string  `json:"lastFundraise"`
}

// DefaultMetrics はゼロ値で埋めたメトリクスを返す。
// 行が存在しない状態での参照や、初回更新時のマージ元として使う。
func DefaultMetrics(now time.Time) Metrics {
	return Metrics{
		LastFundraise: DefaultLastFundraise,
		UpdatedAt:     now,
	}
}

// Apply はパッチを適用する。UpdatedAtの更新は呼び出し側の責務。
func (m *Metrics) Apply(p MetricsPatch) {
	setIfPresent(&m.MRR, p.MRR)
	setIfPresent(&m.Runway, p.Runway)
	setIfPresent(&m.BurnRate, p.BurnRate)
	setIfPresent(&m.ActiveUsers, p.ActiveUsers)
	setIfPresent(&m.CAC, p.CAC)
	setIfPresent(&m.LTV, p.LTV)
	setIfPresent(&m.Churn, p.Churn)
	setIfPresent(&m.TeamSize, p.TeamSize)
	setIfPresent(&m.OpenPositions, p.OpenPositions)
	setIfPresent(&m.CashBalance, p.CashBalance)
	setIfPresent(&m.LastFundraise, p.LastFundraise)
}

// setIfPresent はsrcがnilでない場合のみdstを上書きする。
func setIfPresent[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
