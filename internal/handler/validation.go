package handler

import (
	"fmt"
	"math"
	"strings"

	"github.com/cynco/irportal/internal/model"
)

// 入力長の上限。
const (
	maxShortText = 200
	maxLongText  = 20000
)

// fieldErrors は入力検証エラーを蓄積する。
type fieldErrors []string

func (e *fieldErrors) add(format string, args ...any) {
	*e = append(*e, fmt.Sprintf(format, args...))
}

func (e fieldErrors) detail() string {
	return strings.Join(e, "; ")
}

// requireText は必須の文字列フィールドを検証する。
func (e *fieldErrors) requireText(name string, v *string, limit int) {
	if v == nil || strings.TrimSpace(*v) == "" {
		e.add("%s is required", name)
		return
	}
	e.optionalText(name, v, limit)
}

// optionalText は指定された場合のみ長さを検証する。
func (e *fieldErrors) optionalText(name string, v *string, limit int) {
	if v != nil && len(*v) > limit {
		e.add("%s must be at most %d bytes", name, limit)
	}
}

// patchText は部分更新で指定された文字列が空でないことを検証する。
func (e *fieldErrors) patchText(name string, v *string, limit int) {
	if v != nil {
		e.requireText(name, v, limit)
	}
}

func (e *fieldErrors) requireInt(name string, v *int) {
	if v == nil {
		e.add("%s is required", name)
		return
	}
	e.nonNegative(name, v)
}

// nonNegative は0以上かつINTEGER列に収まる値であることを検証する。
func (e *fieldErrors) nonNegative(name string, v *int) {
	if v == nil {
		return
	}
	switch {
	case *v < 0:
		e.add("%s must not be negative", name)
	case *v > math.MaxInt32:
		e.add("%s must be at most %d", name, math.MaxInt32)
	}
}

func (e *fieldErrors) percentage(name string, v *float64) {
	if v != nil && (math.IsNaN(*v) || *v < 0 || *v > 100) {
		e.add("%s must be between 0 and 100", name)
	}
}

// enum は列挙値フィールドを検証する。requiredがfalseの場合はnilを許す。
func enum[T interface {
	~string
	Valid() bool
}](e *fieldErrors, name string, v *T, required bool) {
	if v == nil {
		if required {
			e.add("%s is required", name)
		}
		return
	}
	if !(*v).Valid() {
		e.add("%s has an unsupported value %q", name, string(*v))
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// --- ログイン ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- Metrics ---

func validateMetricsPatch(p model.MetricsPatch) fieldErrors {
	var errs fieldErrors
	counts := []struct {
		name string
		v    *int
	}{
		{"mrr", p.MRR}, {"runway", p.Runway}, {"burnRate", p.BurnRate}, {"activeUsers", p.ActiveUsers},
		{"cac", p.CAC}, {"ltv", p.LTV}, {"teamSize", p.TeamSize}, {"openPositions", p.OpenPositions},
		{"cashBalance", p.CashBalance},
	}
	for _, c := range counts {
		errs.nonNegative(c.name, c.v)
	}
	errs.percentage("churn", p.Churn)
	errs.patchText("lastFundraise", p.LastFundraise, maxShortText)
	return errs
}

// --- Updates ---

type createUpdateRequest struct {
	Title   *string           `json:"title"`
	Content *string           `json:"content"`
	Author  *string           `json:"author"`
	Type    *model.UpdateType `json:"type"`
}

func (r createUpdateRequest) validate() fieldErrors {
	var errs fieldErrors
	errs.requireText("title", r.Title, maxShortText)
	errs.requireText("content", r.Content, maxLongText)
	errs.optionalText("author", r.Author, maxShortText)
	enum(&errs, "type", r.Type, true)
	return errs
}

func (r createUpdateRequest) toModel(fallbackAuthor string) model.NewCompanyUpdate {
	author := strings.TrimSpace(deref(r.Author))
	if author == "" {
		author = fallbackAuthor
	}
	return model.NewCompanyUpdate{
		Title:   strings.TrimSpace(*r.Title),
		Content: *r.Content,
		Author:  author,
		Type:    *r.Type,
	}
}

func validateUpdatePatch(p model.CompanyUpdatePatch) fieldErrors {
	var errs fieldErrors
	errs.patchText("title", p.Title, maxShortText)
	errs.patchText("content", p.Content, maxLongText)
	errs.patchText("author", p.Author, maxShortText)
	enum(&errs, "type", p.Type, false)
	return errs
}

// --- Stakeholders ---

type createStakeholderRequest struct {
	Name         *string                `json:"name"`
	Title        *string                `json:"title"`
	Type         *model.StakeholderType `json:"type"`
	Shares       *int                   `json:"shares"`
	Percentage   *float64               `json:"percentage"`
	SecurityType *string                `json:"securityType"`
	Initials     *string                `json:"initials"`
}

func (r createStakeholderRequest) validate() fieldErrors {
	var errs fieldErrors
	errs.requireText("name", r.Name, maxShortText)
	errs.requireText("title", r.Title, maxShortText)
	enum(&errs, "type", r.Type, false)
	errs.requireInt("shares", r.Shares)
	if r.Percentage == nil {
		errs.add("percentage is required")
	}
	errs.percentage("percentage", r.Percentage)
	errs.requireText("securityType", r.SecurityType, maxShortText)
	errs.requireText("initials", r.Initials, 8)
	return errs
}

// toModel は入力を変換する。typeを省略した場合はInvestorとして扱う。
func (r createStakeholderRequest) toModel() model.NewStakeholder {
	typ := model.StakeholderInvestor
	if r.Type != nil {
		typ = *r.Type
	}
	return model.NewStakeholder{
		Name:         *r.Name,
		Title:        *r.Title,
		Type:         typ,
		Shares:       *r.Shares,
		Percentage:   *r.Percentage,
		SecurityType: *r.SecurityType,
		Initials:     *r.Initials,
	}
}

func validateStakeholderPatch(p model.StakeholderPatch) fieldErrors {
	var errs fieldErrors
	errs.patchText("name", p.Name, maxShortText)
	errs.patchText("title", p.Title, maxShortText)
	enum(&errs, "type", p.Type, false)
	errs.nonNegative("shares", p.Shares)
	errs.percentage("percentage", p.Percentage)
	errs.patchText("securityType", p.SecurityType, maxShortText)
	errs.patchText("initials", p.Initials, 8)
	return errs
}

// --- Milestones ---

type createMilestoneRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Date        *string                `json:"date"`
	Status      *model.MilestoneStatus `json:"status"`
	Amount      *int                   `json:"amount"`
	Investors   *int                   `json:"investors"`
	Icon        *string                `json:"icon"`
}

func (r createMilestoneRequest) validate() fieldErrors {
	var errs fieldErrors
	errs.requireText("title", r.Title, maxShortText)
	errs.requireText("description", r.Description, maxLongText)
	errs.requireText("date", r.Date, maxShortText)
	enum(&errs, "status", r.Status, true)
	errs.nonNegative("amount", r.Amount)
	errs.nonNegative("investors", r.Investors)
	errs.requireText("icon", r.Icon, maxShortText)
	return errs
}

func (r createMilestoneRequest) toModel() model.NewMilestone {
	return model.NewMilestone{
		Title:       *r.Title,
		Description: *r.Description,
		Date:        *r.Date,
		Status:      *r.Status,
		Amount:      r.Amount,
		Investors:   r.Investors,
		Icon:        *r.Icon,
	}
}

func validateMilestonePatch(p model.MilestonePatch) fieldErrors {
	var errs fieldErrors
	errs.patchText("title", p.Title, maxShortText)
	errs.patchText("description", p.Description, maxLongText)
	errs.patchText("date", p.Date, maxShortText)
	enum(&errs, "status", p.Status, false)
	errs.nonNegative("amount", p.Amount.Value)
	errs.nonNegative("investors", p.Investors.Value)
	errs.patchText("icon", p.Icon, maxShortText)
	return errs
}

// --- Documents ---

type createDocumentRequest struct {
	Name        *string                 `json:"name"`
	Description *string                 `json:"description"`
	Category    *model.DocumentCategory `json:"category"`
	Type        *model.DocumentType     `json:"type"`
	URL         *string                 `json:"url"`
	Source      *string                 `json:"source"`
}

func (r createDocumentRequest) validate() fieldErrors {
	var errs fieldErrors
	errs.requireText("name", r.Name, maxShortText)
	errs.optionalText("description", r.Description, maxLongText)
	enum(&errs, "category", r.Category, true)
	enum(&errs, "type", r.Type, true)
	errs.requireText("url", r.URL, 2048)
	errs.requireText("source", r.Source, maxShortText)
	return errs
}

func (r createDocumentRequest) toModel() model.NewDocument {
	return model.NewDocument{
		Name:        *r.Name,
		Description: r.Description,
		Category:    *r.Category,
		Type:        *r.Type,
		URL:         strings.TrimSpace(*r.URL),
		Source:      *r.Source,
	}
}

// --- Asks ---

type createAskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Category    *model.AskCategory `json:"category"`
	Urgency     *model.Urgency     `json:"urgency"`
	Icon        *string            `json:"icon"`
}

func (r createAskRequest) validate() fieldErrors {
	var errs fieldErrors
	errs.requireText("title", r.Title, maxShortText)
	errs.requireText("description", r.Description, maxLongText)
	enum(&errs, "category", r.Category, true)
	enum(&errs, "urgency", r.Urgency, true)
	errs.requireText("icon", r.Icon, maxShortText)
	return errs
}

func (r createAskRequest) toModel() model.NewAsk {
	return model.NewAsk{
		Title:       *r.Title,
		Description: *r.Description,
		Category:    *r.Category,
		Urgency:     *r.Urgency,
		Icon:        *r.Icon,
	}
}

func validateAskPatch(p model.AskPatch) fieldErrors {
	var errs fieldErrors
	errs.patchText("title", p.Title, maxShortText)
	errs.patchText("description", p.Description, maxLongText)
	enum(&errs, "category", p.Category, false)
	enum(&errs, "urgency", p.Urgency, false)
	errs.patchText("icon", p.Icon, maxShortText)
	return errs
}

type createResponseRequest struct {
	Author  *string `json:"author"`
	Content *string `json:"content"`
}

func (r createResponseRequest) validate() fieldErrors {
	var errs fieldErrors
	errs.optionalText("author", r.Author, maxShortText)
	errs.requireText("content", r.Content, maxLongText)
	return errs
}
