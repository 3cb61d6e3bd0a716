package model

import "time"

// AskCategory は投資家への依頼の種類。
type AskCategory string

const (
	AskIntros AskCategory = "Intros"
	AskHiring AskCategory = "Hiring"
	AskAdvice AskCategory = "Advice"
)

// Valid は定義済みの種類かどうかを返す。
func (c AskCategory) Valid() bool {
	switch c {
	case AskIntros, AskHiring, AskAdvice:
		return true
	default:
		return false
	}
}

// Urgency は依頼の緊急度。
type Urgency string

const (
	UrgencyHigh   Urgency = "High"
	UrgencyMedium Urgency = "Medium"
	UrgencyLow    Urgency = "Low"
)

// Valid は定義済みの緊急度かどうかを返す。
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	default:
		return false
	}
}

// Ask は管理者が投資家に支援を求める依頼（紹介、採用、助言）。
// Responsesは派生フィールドで、回答作成のたびに関連Response件数から再計算される。
// 呼び出し側から直接設定することはできない。
// Viewsは専用の操作でのみ1ずつ増加し、減少することはない。
type Ask struct {
	ID          int64       `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	Category    AskCategory `json:"category" db:"category"`
	Urgency     Urgency     `json:"urgency" db:"urgency"`
	Responses   int         `json:"responses" db:"responses"`
	Views       int         `json:"views" db:"views"`
	Icon        string      `json:"icon" db:"icon"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
}

// NewAsk はAsk作成時の入力。
type NewAsk struct {
	Title       string
	Description string
	Category    AskCategory
	Urgency     Urgency
	Icon        string
}

// AskPatch はAskの部分更新。ResponsesとViewsは更新対象外。
type AskPatch struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Category    *AskCategory `json:"category"`
	Urgency     *Urgency     `json:"urgency"`
	Icon        *string      `json:"icon"`
}

// Apply はパッチを適用する。
func (a *Ask) Apply(p AskPatch) {
	setIfPresent(&a.Title, p.Title)
	setIfPresent(&a.Description, p.Description)
	setIfPresent(&a.Category, p.Category)
	setIfPresent(&a.Urgency, p.Urgency)
	setIfPresent(&a.Icon, p.Icon)
}

// Response はAskに対する回答。AskIDでAskを参照する（オブジェクト参照は持たない）。
// 削除操作は提供しない。
type Response struct {
	ID        int64     `json:"id" db:"id"`
	AskID     int64     `json:"askId" db:"ask_id"`
	Author    string    `json:"author" db:"author"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NewResponse は回答作成時の入力。
// AuthorFallbackはAuthorが空（タグ除去後を含む）の場合に回答者名として使う。
type NewResponse struct {
	AskID          int64
	Author         string
	AuthorFallback string
	Content        string
}
