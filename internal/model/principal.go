// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Role はポータル利用者のロールを表す。
type Role string

const (
	// RoleAdmin は創業者（管理者）ロール。全データの編集が可能。
	RoleAdmin Role = "admin"
	// RoleInvestor は投資家ロール。閲覧とAskへの回答のみ可能。
	RoleInvestor Role = "investor"
)

// Valid はロールが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleInvestor
}

// Principal は認証済みの利用者を表す。
// ログイン成功時にupsertされ、プログラムから削除されることはない。
type Principal struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Role      Role      `db:"user_type"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DisplayName は姓名を連結した表示名を返す。
func (p *Principal) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// IsAdmin は管理者ロールかどうかを返す。
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Session は利用者のログインセッションを表す。
// 作成時刻から固定TTLで失効する（スライディング延長はしない）。
type Session struct {
	ID          string    `db:"id"`
	PrincipalID string    `db:"principal_id"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

// Expired は指定時刻の時点でセッションが失効しているかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
