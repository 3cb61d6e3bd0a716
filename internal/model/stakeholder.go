package model

// StakeholderType はキャップテーブル上の株主区分。
type StakeholderType string

const (
	StakeholderFounder  StakeholderType = "Founder"
	StakeholderInvestor StakeholderType = "Investor"
	StakeholderOptions  StakeholderType = "Options"
	StakeholderEmployee StakeholderType = "Employee"
)

// Valid は定義済みの区分かどうかを返す。
func (t StakeholderType) Valid() bool {
	switch t {
	case StakeholderFounder, StakeholderInvestor, StakeholderOptions, StakeholderEmployee:
		return true
	default:
		return false
	}
}

// Stakeholder はキャップテーブルの1行（持分保有者）を表す。
// 全株主のPercentage合計は100に近いことが期待されるが、システムでは強制しない。
type Stakeholder struct {
	ID           int64           `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Title        string          `json:"title" db:"title"`
	Type         StakeholderType `json:"type" db:"type"`
	Shares       int             `json:"shares" db:"shares"`
	Percentage   float64         `json:"percentage" db:"percentage"`
	SecurityType string          `json:"securityType" db:"security_type"`
	Initials     string          `json:"initials" db:"initials"`
}

// NewStakeholder は株主作成時の入力。
type NewStakeholder struct {
	Name         string
	Title        string
	Type         StakeholderType
	Shares       int
	Percentage   float64
	SecurityType string
	Initials     string
}

// StakeholderPatch は株主の部分更新。
type StakeholderPatch struct {
	Name         *string          `json:"name"`
	Title        *string          `json:"title"`
	Type         *StakeholderType `json:"type"`
	Shares       *int             `json:"shares"`
	Percentage   *float64         `json:"percentage"`
	SecurityType *string          `json:"securityType"`
	Initials     *string          `json:"initials"`
}

// Apply はパッチを適用する。
func (s *Stakeholder) Apply(p StakeholderPatch) {
	setIfPresent(&s.Name, p.Name)
	setIfPresent(&s.Title, p.Title)
	setIfPresent(&s.Type, p.Type)
	setIfPresent(&s.Shares, p.Shares)
	setIfPresent(&s.Percentage, p.Percentage)
	setIfPresent(&s.SecurityType, p.SecurityType)
	setIfPresent(&s.Initials, p.Initials)
}
