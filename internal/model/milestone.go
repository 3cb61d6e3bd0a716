package model

// MilestoneStatus は資金調達タイムライン上の進捗状態。
type MilestoneStatus string

const (
	MilestonePlanned    MilestoneStatus = "Planned"
	MilestoneInProgress MilestoneStatus = "In Progress"
	MilestoneCompleted  MilestoneStatus = "Completed"
)

// Valid は定義済みの状態かどうかを返す。
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestonePlanned, MilestoneInProgress, MilestoneCompleted:
		return true
	default:
		return false
	}
}

// Milestone は資金調達タイムラインの日付付きエントリ。
// Dateは "March 2024" や "Q4 2024 (Planned)" のような表示用の文字列。
type Milestone struct {
	ID          int64           `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Date        string          `json:"date" db:"date"`
	Status      MilestoneStatus `json:"status" db:"status"`
	Amount      *int            `json:"amount" db:"amount"`
	Investors   *int            `json:"investors" db:"investors"`
	Icon        string          `json:"icon" db:"icon"`
}

// NewMilestone はマイルストーン作成時の入力。
type NewMilestone struct {
	Title       string
	Description string
	Date        string
	Status      MilestoneStatus
	Amount      *int
	Investors   *int
	Icon        string
}

// MilestonePatch はマイルストーンの部分更新。
// AmountとInvestorsはnullで値を消去できる。
type MilestonePatch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Date        *string          `json:"date"`
	Status      *MilestoneStatus `json:"status"`
	Amount      Optional[int]    `json:"amount"`
	Investors   Optional[int]    `json:"investors"`
	Icon        *string          `json:"icon"`
}

// Apply はパッチを適用する。
func (m *Milestone) Apply(p MilestonePatch) {
	setIfPresent(&m.Title, p.Title)
	setIfPresent(&m.Description, p.Description)
	setIfPresent(&m.Date, p.Date)
	setIfPresent(&m.Status, p.Status)
	applyOptional(&m.Amount, p.Amount)
	applyOptional(&m.Investors, p.Investors)
	setIfPresent(&m.Icon, p.Icon)
}
