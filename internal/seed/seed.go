// Package seed は起動時に投入する初期データ（ログインアカウント、KPI、キャップテーブル、
// 資金調達タイムライン）を埋め込みYAMLから読み込む。
package seed

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cynco/irportal/internal/model"
)

//go:embed seed.yaml
var defaultSeed []byte

// Account はログイン可能なシードアカウント。Passwordは平文で、
// 認証情報ストアの構築時にのみ参照される。
type Account struct {
	ID        string     `yaml:"id"`
	Email     string     `yaml:"email"`
	Password  string     `yaml:"password"`
	FirstName string     `yaml:"first_name"`
	LastName  string     `yaml:"last_name"`
	Role      model.Role `yaml:"role"`
}

// Principal はアカウントに対応するPrincipalを返す。タイムスタンプは設定しない。
func (a Account) Principal() model.Principal {
	return model.Principal{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
	}
}

// Metrics はKPIの初期値。
type Metrics struct {
	MRR           int     `yaml:"mrr"`
	Runway        int     `yaml:"runway"`
	BurnRate      int     `yaml:"burn_rate"`
	ActiveUsers   int     `yaml:"active_users"`
	CAC           int     `yaml:"cac"`
	LTV           int     `yaml:"ltv"`
	Churn         float64 `yaml:"churn"`
	TeamSize      int     `yaml:"team_size"`
	OpenPositions int     `yaml:"open_positions"`
	CashBalance   int     `yaml:"cash_balance"`
	LastFundraise string  `yaml:"last_fundraise"`
}

// Patch は初期値を全フィールド指定のMetricsPatchに変換する。
func (m *Metrics) Patch() model.MetricsPatch {
	return model.MetricsPatch{
		MRR:           &m.MRR,
		Runway:        &m.Runway,
		BurnRate:      &m.BurnRate,
		ActiveUsers:   &m.ActiveUsers,
		CAC:           &m.CAC,
		LTV:           &m.LTV,
		Churn:         &m.Churn,
		TeamSize:      &m.TeamSize,
		OpenPositions: &m.OpenPositions,
		CashBalance:   &m.CashBalance,
		LastFundraise: &m.LastFundraise,
	}
}

// Stakeholder はキャップテーブルの初期行。
type Stakeholder struct {
	Name         string                `yaml:"name"`
	Title        string                `yaml:"title"`
	Type         model.StakeholderType `yaml:"type"`
	Shares       int                   `yaml:"shares"`
	Percentage   float64               `yaml:"percentage"`
	SecurityType string                `yaml:"security_type"`
	Initials     string                `yaml:"initials"`
}

// Milestone は資金調達タイムラインの初期エントリ。
type Milestone struct {
	Title       string                `yaml:"title"`
	Description string                `yaml:"description"`
	Date        string                `yaml:"date"`
	Status      model.MilestoneStatus `yaml:"status"`
	Amount      *int                  `yaml:"amount"`
	Investors   *int                  `yaml:"investors"`
	Icon        string                `yaml:"icon"`
}

// Data はシードデータ全体。
type Data struct {
	Accounts     []Account     `yaml:"accounts"`
	Metrics      *Metrics      `yaml:"metrics"`
	Stakeholders []Stakeholder `yaml:"stakeholders"`
	Milestones   []Milestone   `yaml:"milestones"`
}

// NewStakeholders はリポジトリ投入用の入力に変換する。
func (d *Data) NewStakeholders() []model.NewStakeholder {
	out := make([]model.NewStakeholder, 0, len(d.Stakeholders))
	for _, s := range d.Stakeholders {
		out = append(out, model.NewStakeholder{
			Name:         s.Name,
			Title:        s.Title,
			Type:         s.Type,
			Shares:       s.Shares,
			Percentage:   s.Percentage,
			SecurityType: s.SecurityType,
			Initials:     s.Initials,
		})
	}
	return out
}

// NewMilestones はリポジトリ投入用の入力に変換する。
func (d *Data) NewMilestones() []model.NewMilestone {
	out := make([]model.NewMilestone, 0, len(d.Milestones))
	for _, m := range d.Milestones {
		out = append(out, model.NewMilestone{
			Title:       m.Title,
			Description: m.Description,
			Date:        m.Date,
			Status:      m.Status,
			Amount:      m.Amount,
			Investors:   m.Investors,
			Icon:        m.Icon,
		})
	}
	return out
}

// Default は埋め込みのシードデータを返す。
func Default() (*Data, error) {
	return Parse(defaultSeed)
}

// Parse はYAMLを読み込み、列挙値とアカウントを検証する。
func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parsing seed data: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("validating seed data: %w", err)
	}
	return &d, nil
}

// Validate はシードデータの整合性を検証する。
// メールアドレスは正規化済み（小文字、前後空白なし）であることを要求する。
func (d *Data) Validate() error {
	seenID := make(map[string]bool, len(d.Accounts))
	seenEmail := make(map[string]bool, len(d.Accounts))
	for i, a := range d.Accounts {
		switch {
		case a.ID == "":
			return fmt.Errorf("accounts[%d]: id is required", i)
		case a.Email == "" || a.Email != strings.ToLower(strings.TrimSpace(a.Email)):
			return fmt.Errorf("accounts[%d]: email must be normalized", i)
		case a.Password == "":
			return fmt.Errorf("accounts[%d]: password is required", i)
		case !a.Role.Valid():
			return fmt.Errorf("accounts[%d]: invalid role %q", i, a.Role)
		case seenID[a.ID]:
			return fmt.Errorf("accounts[%d]: duplicate id %q", i, a.ID)
		case seenEmail[a.Email]:
			return fmt.Errorf("accounts[%d]: duplicate email %q", i, a.Email)
		}
		seenID[a.ID] = true
		seenEmail[a.Email] = true
	}
	for i, s := range d.Stakeholders {
		if !s.Type.Valid() {
			return fmt.Errorf("stakeholders[%d]: invalid type %q", i, s.Type)
		}
	}
	for i, m := range d.Milestones {
		if !m.Status.Valid() {
			return fmt.Errorf("milestones[%d]: invalid status %q", i, m.Status)
		}
	}
	return nil
}
