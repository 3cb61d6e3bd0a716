package model

import "time"

// UpdateType は会社アップデートの種別。
type UpdateType string

const (
	UpdateTypeMonthly   UpdateType = "Monthly"
	UpdateTypeQuarterly UpdateType = "Quarterly"
)

// Valid は定義済みの種別かどうかを返す。
func (t UpdateType) Valid() bool {
	return t == UpdateTypeMonthly || t == UpdateTypeQuarterly
}

// CompanyUpdate は管理者が投稿する会社アップデート（投資家向けレター）。
// Contentはmarkdownで記述され、表示用HTMLは読み出し時に生成する。
// Attachments、Comments、Viewsは計測用カウンタで、作成時は0。
type CompanyUpdate struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Content     string     `json:"content" db:"content"`
	Author      string     `json:"author" db:"author"`
	Type        UpdateType `json:"type" db:"type"`
	Attachments int        `json:"attachments" db:"attachments"`
	Comments    int        `json:"comments" db:"comments"`
	Views       int        `json:"views" db:"views"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

// NewCompanyUpdate は会社アップデート作成時の入力。
type NewCompanyUpdate struct {
	Title   string
	Content string
	Author  string
	Type    UpdateType
}

// CompanyUpdatePatch は会社アップデートの部分更新。カウンタは更新対象外。
type CompanyUpdatePatch struct {
	Title   *string     `json:"title"`
	Content *string     `json:"content"`
	Author  *string     `json:"author"`
	Type    *UpdateType `json:"type"`
}

// Apply はパッチを適用する。
func (u *CompanyUpdate) Apply(p CompanyUpdatePatch) {
	setIfPresent(&u.Title, p.Title)
	setIfPresent(&u.Content, p.Content)
	setIfPresent(&u.Author, p.Author)
	setIfPresent(&u.Type, p.Type)
}
