// Package portal は投資家ポータルのユースケースを提供する。
// ストアの結果をエラー分類（APIError）に変換し、ストレージ障害を構造化ログに記録する。
package portal

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cynco/irportal/internal/model"
	"github.com/cynco/irportal/internal/repository"
	"github.com/cynco/irportal/internal/security"
)

// エンティティ名（エラーメッセージとログ用）。
const (
	entityMetrics     = "metrics"
	entityUpdate      = "update"
	entityStakeholder = "stakeholder"
	entityMilestone   = "milestone"
	entityDocument    = "document"
	entityAsk         = "ask"
	entityResponse    = "response"
)

// Recorder はポータル操作のメトリクスを記録する。
type Recorder interface {
	RecordAskView()
	RecordResponseCreated()
}

// Service はポータルのビジネスロジックを提供する。
type Service struct {
	store    *repository.Store
	renderer security.ContentRenderer
	urls     security.URLGuard
	recorder Recorder
	now      func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(store *repository.Store, renderer security.ContentRenderer, urls security.URLGuard, recorder Recorder) *Service {
	return &Service{
		store:    store,
		renderer: renderer,
		urls:     urls,
		recorder: recorder,
		now:      time.Now,
	}
}

// storageFailure はストレージ障害をログに記録し、利用者向けの内部エラーに置き換える。
func storageFailure(ctx context.Context, operation, entity string, id int64, err error) error {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("entity", entity),
		slog.String("error", err.Error()),
	}
	if id != 0 {
		attrs = append(attrs, slog.Int64("id", id))
	}
	slog.ErrorContext(ctx, "storage operation failed", attrs...)
	return model.NewInternalError()
}

// --- Metrics ---

// GetMetrics はKPIを返す。未作成の場合はゼロ値のデフォルトを返す。
func (s *Service) GetMetrics(ctx context.Context) (*model.Metrics, error) {
	m, err := s.store.Metrics.Get(ctx)
	if err != nil {
		return nil, storageFailure(ctx, "get", entityMetrics, 0, err)
	}
	if m == nil {
		d := model.DefaultMetrics(s.now())
		return &d, nil
	}
	return m, nil
}

// UpdateMetrics はKPIを部分更新する。
func (s *Service) UpdateMetrics(ctx context.Context, patch model.MetricsPatch) (*model.Metrics, error) {
	m, err := s.store.Metrics.Update(ctx, patch)
	if err != nil {
		return nil, storageFailure(ctx, "update", entityMetrics, 0, err)
	}
	return m, nil
}

// --- Updates ---

// UpdateView は表示用HTMLを付加した会社アップデート。
type UpdateView struct {
	model.CompanyUpdate
	ContentHTML string `json:"contentHtml"`
}

func (s *Service) viewOf(u model.CompanyUpdate) UpdateView {
	return UpdateView{CompanyUpdate: u, ContentHTML: s.renderer.RenderMarkdown(u.Content)}
}

// ListUpdates は会社アップデートを新しい順に返す。
func (s *Service) ListUpdates(ctx context.Context) ([]UpdateView, error) {
	updates, err := s.store.Updates.List(ctx)
	if err != nil {
		return nil, storageFailure(ctx, "list", entityUpdate, 0, err)
	}
	views := make([]UpdateView, len(updates))
	for i, u := range updates {
		views[i] = s.viewOf(u)
	}
	return views, nil
}

// CreateUpdate は会社アップデートを作成する。
func (s *Service) CreateUpdate(ctx context.Context, in model.NewCompanyUpdate) (*UpdateView, error) {
	u, err := s.store.Updates.Create(ctx, in)
	if err != nil {
		return nil, storageFailure(ctx, "create", entityUpdate, 0, err)
	}
	v := s.viewOf(*u)
	return &v, nil
}

// UpdateUpdate は会社アップデートを部分更新する。
func (s *Service) UpdateUpdate(ctx context.Context, id int64, patch model.CompanyUpdatePatch) (*UpdateView, error) {
	u, err := s.store.Updates.Update(ctx, id, patch)
	if err != nil {
		return nil, storageFailure(ctx, "update", entityUpdate, id, err)
	}
	if u == nil {
		return nil, model.NewNotFoundError("アップデート", id)
	}
	v := s.viewOf(*u)
	return &v, nil
}

// DeleteUpdate は会社アップデートを削除する。
func (s *Service) DeleteUpdate(ctx context.Context, id int64) error {
	ok, err := s.store.Updates.Delete(ctx, id)
	if err != nil {
		return storageFailure(ctx, "delete", entityUpdate, id, err)
	}
	if !ok {
		return model.NewNotFoundError("アップデート", id)
	}
	return nil
}

// --- Stakeholders ---

// ListStakeholders はキャップテーブルを返す。
func (s *Service) ListStakeholders(ctx context.Context) ([]model.Stakeholder, error) {
	list, err := s.store.Stakeholders.List(ctx)
	if err != nil {
		return nil, storageFailure(ctx, "list", entityStakeholder, 0, err)
	}
	return list, nil
}

// CreateStakeholder は株主を追加する。持分比率の合計は検証しない。
func (s *Service) CreateStakeholder(ctx context.Context, in model.NewStakeholder) (*model.Stakeholder, error) {
	st, err := s.store.Stakeholders.Create(ctx, in)
	if err != nil {
		return nil, storageFailure(ctx, "create", entityStakeholder, 0, err)
	}
	return st, nil
}

// UpdateStakeholder は株主を部分更新する。
func (s *Service) UpdateStakeholder(ctx context.Context, id int64, patch model.StakeholderPatch) (*model.Stakeholder, error) {
	st, err := s.store.Stakeholders.Update(ctx, id, patch)
	if err != nil {
		return nil, storageFailure(ctx, "update", entityStakeholder, id, err)
	}
	if st == nil {
		return nil, model.NewNotFoundError("株主", id)
	}
	return st, nil
}

// --- Milestones ---

// ListMilestones は資金調達タイムラインを返す。
func (s *Service) ListMilestones(ctx context.Context) ([]model.Milestone, error) {
	list, err := s.store.Milestones.List(ctx)
	if err != nil {
		return nil, storageFailure(ctx, "list", entityMilestone, 0, err)
	}
	return list, nil
}

// CreateMilestone はマイルストーンを作成する。
func (s *Service) CreateMilestone(ctx context.Context, in model.NewMilestone) (*model.Milestone, error) {
	m, err := s.store.Milestones.Create(ctx, in)
	if err != nil {
		return nil, storageFailure(ctx, "create", entityMilestone, 0, err)
	}
	return m, nil
}

// UpdateMilestone はマイルストーンを部分更新する。
func (s *Service) UpdateMilestone(ctx context.Context, id int64, patch model.MilestonePatch) (*model.Milestone, error) {
	m, err := s.store.Milestones.Update(ctx, id, patch)
	if err != nil {
		return nil, storageFailure(ctx, "update", entityMilestone, id, err)
	}
	if m == nil {
		return nil, model.NewNotFoundError("マイルストーン", id)
	}
	return m, nil
}

// DeleteMilestone はマイルストーンを削除する。
func (s *Service) DeleteMilestone(ctx context.Context, id int64) error {
	ok, err := s.store.Milestones.Delete(ctx, id)
	if err != nil {
		return storageFailure(ctx, "delete", entityMilestone, id, err)
	}
	if !ok {
		return model.NewNotFoundError("マイルストーン", id)
	}
	return nil
}

// --- Documents ---

// ListDocuments は書類を日付の新しい順に返す。
func (s *Service) ListDocuments(ctx context.Context) ([]model.Document, error) {
	list, err := s.store.Documents.List(ctx)
	if err != nil {
		return nil, storageFailure(ctx, "list", entityDocument, 0, err)
	}
	return list, nil
}

// CreateDocument は書類リンクを登録する。URLは公開ホストのhttp(s)に限る。
func (s *Service) CreateDocument(ctx context.Context, in model.NewDocument) (*model.Document, error) {
	if err := s.urls.ValidateURL(in.URL); err != nil {
		slog.WarnContext(ctx, "document url rejected", slog.String("error", err.Error()))
		return nil, model.NewValidationError("url: " + err.Error())
	}
	d, err := s.store.Documents.Create(ctx, in)
	if err != nil {
		return nil, storageFailure(ctx, "create", entityDocument, 0, err)
	}
	return d, nil
}

// DeleteDocument は書類を削除する。
func (s *Service) DeleteDocument(ctx context.Context, id int64) error {
	ok, err := s.store.Documents.Delete(ctx, id)
	if err != nil {
		return storageFailure(ctx, "delete", entityDocument, id, err)
	}
	if !ok {
		return model.NewNotFoundError("書類", id)
	}
	return nil
}

// --- Asks ---

// ListAsks はAskを新しい順に返す。
func (s *Service) ListAsks(ctx context.Context) ([]model.Ask, error) {
	list, err := s.store.Asks.List(ctx)
	if err != nil {
		return nil, storageFailure(ctx, "list", entityAsk, 0, err)
	}
	return list, nil
}

// CreateAsk はAskを作成する。
// タグ除去後にタイトルや説明が空になる入力は保存せず検証エラーにする。
func (s *Service) CreateAsk(ctx context.Context, in model.NewAsk) (*model.Ask, error) {
	in.Title = s.renderer.StripMarkup(in.Title)
	in.Description = s.renderer.StripMarkup(in.Description)
	if err := requireText(
		textField{"title", &in.Title},
		textField{"description", &in.Description},
	); err != nil {
		return nil, err
	}
	a, err := s.store.Asks.Create(ctx, in)
	if err != nil {
		return nil, storageFailure(ctx, "create", entityAsk, 0, err)
	}
	return a, nil
}

// UpdateAsk はAskを部分更新する。回答数と閲覧数は変更できない。
func (s *Service) UpdateAsk(ctx context.Context, id int64, patch model.AskPatch) (*model.Ask, error) {
	patch.Title = s.stripPtr(patch.Title)
	patch.Description = s.stripPtr(patch.Description)
	if err := requireText(
		textField{"title", patch.Title},
		textField{"description", patch.Description},
	); err != nil {
		return nil, err
	}
	a, err := s.store.Asks.Update(ctx, id, patch)
	if err != nil {
		return nil, storageFailure(ctx, "update", entityAsk, id, err)
	}
	if a == nil {
		return nil, model.NewNotFoundError("Ask", id)
	}
	return a, nil
}

// DeleteAsk はAskとその回答を削除する。
func (s *Service) DeleteAsk(ctx context.Context, id int64) error {
	ok, err := s.store.Asks.Delete(ctx, id)
	if err != nil {
		return storageFailure(ctx, "delete", entityAsk, id, err)
	}
	if !ok {
		return model.NewNotFoundError("Ask", id)
	}
	return nil
}

// RecordAskView は閲覧数を1増やす。存在しないIDは何もしない。
func (s *Service) RecordAskView(ctx context.Context, id int64) error {
	ok, err := s.store.Asks.IncrementViews(ctx, id)
	if err != nil {
		return storageFailure(ctx, "increment_views", entityAsk, id, err)
	}
	if !ok {
		slog.DebugContext(ctx, "view recorded for unknown ask", slog.Int64("id", id))
		return nil
	}
	if s.recorder != nil {
		s.recorder.RecordAskView()
	}
	return nil
}

// ListResponses はAskへの回答を新しい順に返す。存在しないAskには空の一覧を返す。
func (s *Service) ListResponses(ctx context.Context, askID int64) ([]model.Response, error) {
	list, err := s.store.Responses.ListByAsk(ctx, askID)
	if err != nil {
		return nil, storageFailure(ctx, "list", entityResponse, askID, err)
	}
	return list, nil
}

// CreateResponse はAskに回答し、回答数を再計算する。
// 本文と回答者名はタグを除去して保存する。回答者名が空になる場合はAuthorFallbackを使う。
func (s *Service) CreateResponse(ctx context.Context, in model.NewResponse) (*model.Response, error) {
	in.Author = s.renderer.StripMarkup(in.Author)
	if in.Author == "" {
		in.Author = s.renderer.StripMarkup(in.AuthorFallback)
	}
	in.Content = s.renderer.StripMarkup(in.Content)
	if err := requireText(textField{"content", &in.Content}); err != nil {
		return nil, err
	}

	resp, err := s.store.Responses.Create(ctx, in)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewNotFoundError("Ask", in.AskID)
	}
	if err != nil {
		return nil, storageFailure(ctx, "create", entityResponse, in.AskID, err)
	}
	if s.recorder != nil {
		s.recorder.RecordResponseCreated()
	}
	return resp, nil
}

// textField はタグ除去後に空でないことを確認するフィールド。valueがnilの場合は検証しない。
type textField struct {
	name  string
	value *string
}

func requireText(fields ...textField) error {
	var missing []string
	for _, f := range fields {
		if f.value != nil && *f.value == "" {
			missing = append(missing, f.name+" is required")
		}
	}
	if len(missing) > 0 {
		return model.NewValidationError(strings.Join(missing, "; "))
	}
	return nil
}

func (s *Service) stripPtr(v *string) *string {
	if v == nil {
		return nil
	}
	out := s.renderer.StripMarkup(*v)
	return &out
}
