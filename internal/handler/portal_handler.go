package handler

import (
	"context"
	"net/http"

	"github.com/cynco/irportal/internal/middleware"
	"github.com/cynco/irportal/internal/model"
	"github.com/cynco/irportal/internal/portal"
)

// PortalServiceInterface はポータルハンドラーが必要とするサービスインターフェース。
type PortalServiceInterface interface {
	GetMetrics(ctx context.Context) (*model.Metrics, error)
	UpdateMetrics(ctx context.Context, patch model.MetricsPatch) (*model.Metrics, error)

	ListUpdates(ctx context.Context) ([]portal.UpdateView, error)
	CreateUpdate(ctx context.Context, in model.NewCompanyUpdate) (*portal.UpdateView, error)
	UpdateUpdate(ctx context.Context, id int64, patch model.CompanyUpdatePatch) (*portal.UpdateView, error)
	DeleteUpdate(ctx context.Context, id int64) error

	ListStakeholders(ctx context.Context) ([]model.Stakeholder, error)
	CreateStakeholder(ctx context.Context, in model.NewStakeholder) (*model.Stakeholder, error)
	UpdateStakeholder(ctx context.Context, id int64, patch model.StakeholderPatch) (*model.Stakeholder, error)

	ListMilestones(ctx context.Context) ([]model.Milestone, error)
	CreateMilestone(ctx context.Context, in model.NewMilestone) (*model.Milestone, error)
	UpdateMilestone(ctx context.Context, id int64, patch model.MilestonePatch) (*model.Milestone, error)
	DeleteMilestone(ctx context.Context, id int64) error

	ListDocuments(ctx context.Context) ([]model.Document, error)
	CreateDocument(ctx context.Context, in model.NewDocument) (*model.Document, error)
	DeleteDocument(ctx context.Context, id int64) error

	ListAsks(ctx context.Context) ([]model.Ask, error)
	CreateAsk(ctx context.Context, in model.NewAsk) (*model.Ask, error)
	UpdateAsk(ctx context.Context, id int64, patch model.AskPatch) (*model.Ask, error)
	DeleteAsk(ctx context.Context, id int64) error
	RecordAskView(ctx context.Context, id int64) error
	ListResponses(ctx context.Context, askID int64) ([]model.Response, error)
	CreateResponse(ctx context.Context, in model.NewResponse) (*model.Response, error)
}

// PortalHandler はKPI、アップデート、キャップテーブル、タイムライン、書類、AskのHTTPハンドラー。
type PortalHandler struct {
	service PortalServiceInterface
}

// NewPortalHandler はPortalHandlerを生成する。
func NewPortalHandler(service PortalServiceInterface) *PortalHandler {
	return &PortalHandler{service: service}
}

// respond はサービス呼び出しの結果を書き込む。
func respond[T any](w http.ResponseWriter, r *http.Request, status int, v T, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, status, v)
}

// validPatch はパッチをデコードして検証する。
func validPatch[P any](w http.ResponseWriter, r *http.Request, validate func(P) fieldErrors) (P, bool) {
	var patch P
	if !decodeJSON(w, r, &patch) {
		return patch, false
	}
	if errs := validate(patch); len(errs) > 0 {
		writeValidationError(w, errs.detail())
		return patch, false
	}
	return patch, true
}

// validRequest は作成リクエストをデコードして検証する。
func validRequest[R interface{ validate() fieldErrors }](w http.ResponseWriter, r *http.Request) (R, bool) {
	var req R
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationError(w, errs.detail())
		return req, false
	}
	return req, true
}

func (h *PortalHandler) deleted(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Metrics ---

// GetMetrics GET /api/metrics
func (h *PortalHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetMetrics(r.Context())
	respond(w, r, http.StatusOK, m, err)
}

// UpdateMetrics PUT /api/metrics
func (h *PortalHandler) UpdateMetrics(w http.ResponseWriter, r *http.Request) {
	patch, ok := validPatch(w, r, validateMetricsPatch)
	if !ok {
		return
	}
	m, err := h.service.UpdateMetrics(r.Context(), patch)
	respond(w, r, http.StatusOK, m, err)
}

// --- Updates ---

// ListUpdates GET /api/updates
func (h *PortalHandler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUpdates(r.Context())
	respond(w, r, http.StatusOK, list, err)
}

// CreateUpdate POST /api/updates
// authorを省略した場合はログイン中の管理者の表示名を使う。
func (h *PortalHandler) CreateUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := validRequest[createUpdateRequest](w, r)
	if !ok {
		return
	}
	var fallback string
	if p := middleware.PrincipalFromContext(r.Context()); p != nil {
		fallback = p.DisplayName()
	}
	u, err := h.service.CreateUpdate(r.Context(), req.toModel(fallback))
	respond(w, r, http.StatusCreated, u, err)
}

// UpdateUpdate PUT /api/updates/{id}
func (h *PortalHandler) UpdateUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	patch, ok := validPatch(w, r, validateUpdatePatch)
	if !ok {
		return
	}
	u, err := h.service.UpdateUpdate(r.Context(), id, patch)
	respond(w, r, http.StatusOK, u, err)
}

// DeleteUpdate DELETE /api/updates/{id}
func (h *PortalHandler) DeleteUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	h.deleted(w, r, h.service.DeleteUpdate(r.Context(), id))
}

// --- Stakeholders ---

// ListStakeholders GET /api/stakeholders
func (h *PortalHandler) ListStakeholders(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListStakeholders(r.Context())
	respond(w, r, http.StatusOK, list, err)
}

// CreateStakeholder POST /api/stakeholders
func (h *PortalHandler) CreateStakeholder(w http.ResponseWriter, r *http.Request) {
	req, ok := validRequest[createStakeholderRequest](w, r)
	if !ok {
		return
	}
	s, err := h.service.CreateStakeholder(r.Context(), req.toModel())
	respond(w, r, http.StatusCreated, s, err)
}

// UpdateStakeholder PUT /api/stakeholders/{id}
func (h *PortalHandler) UpdateStakeholder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	patch, ok := validPatch(w, r, validateStakeholderPatch)
	if !ok {
		return
	}
	s, err := h.service.UpdateStakeholder(r.Context(), id, patch)
	respond(w, r, http.StatusOK, s, err)
}

// --- Milestones ---

// ListMilestones GET /api/milestones
func (h *PortalHandler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMilestones(r.Context())
	respond(w, r, http.StatusOK, list, err)
}

// CreateMilestone POST /api/milestones
func (h *PortalHandler) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	req, ok := validRequest[createMilestoneRequest](w, r)
	if !ok {
		return
	}
	m, err := h.service.CreateMilestone(r.Context(), req.toModel())
	respond(w, r, http.StatusCreated, m, err)
}

// UpdateMilestone PUT /api/milestones/{id}
// amount、investorsはnullを指定すると値を消去する。
func (h *PortalHandler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	patch, ok := validPatch(w, r, validateMilestonePatch)
	if !ok {
		return
	}
	m, err := h.service.UpdateMilestone(r.Context(), id, patch)
	respond(w, r, http.StatusOK, m, err)
}

// DeleteMilestone DELETE /api/milestones/{id}
func (h *PortalHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	h.deleted(w, r, h.service.DeleteMilestone(r.Context(), id))
}

// --- Documents ---

// ListDocuments GET /api/documents
func (h *PortalHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListDocuments(r.Context())
	respond(w, r, http.StatusOK, list, err)
}

// CreateDocument POST /api/documents
func (h *PortalHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := validRequest[createDocumentRequest](w, r)
	if !ok {
		return
	}
	d, err := h.service.CreateDocument(r.Context(), req.toModel())
	respond(w, r, http.StatusCreated, d, err)
}

// DeleteDocument DELETE /api/documents/{id}
func (h *PortalHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	h.deleted(w, r, h.service.DeleteDocument(r.Context(), id))
}

// --- Asks ---

// ListAsks GET /api/asks
func (h *PortalHandler) ListAsks(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAsks(r.Context())
	respond(w, r, http.StatusOK, list, err)
}

// CreateAsk POST /api/asks
func (h *PortalHandler) CreateAsk(w http.ResponseWriter, r *http.Request) {
	req, ok := validRequest[createAskRequest](w, r)
	if !ok {
		return
	}
	a, err := h.service.CreateAsk(r.Context(), req.toModel())
	respond(w, r, http.StatusCreated, a, err)
}

// UpdateAsk PUT /api/asks/{id}
func (h *PortalHandler) UpdateAsk(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	patch, ok := validPatch(w, r, validateAskPatch)
	if !ok {
		return
	}
	a, err := h.service.UpdateAsk(r.Context(), id, patch)
	respond(w, r, http.StatusOK, a, err)
}

// DeleteAsk DELETE /api/asks/{id}
func (h *PortalHandler) DeleteAsk(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	h.deleted(w, r, h.service.DeleteAsk(r.Context(), id))
}

// RecordAskView POST /api/asks/{id}/view
// 存在しないIDでも200を返す。
func (h *PortalHandler) RecordAskView(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.RecordAskView(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// ListResponses GET /api/asks/{id}/responses
func (h *PortalHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.service.ListResponses(r.Context(), id)
	respond(w, r, http.StatusOK, list, err)
}

// CreateResponse POST /api/asks/{id}/responses
// authorを省略した場合はログイン中の利用者の表示名を使う。
func (h *PortalHandler) CreateResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	req, ok := validRequest[createResponseRequest](w, r)
	if !ok {
		return
	}

	var fallback string
	if p := middleware.PrincipalFromContext(r.Context()); p != nil {
		fallback = p.DisplayName()
	}
	resp, err := h.service.CreateResponse(r.Context(), model.NewResponse{
		AskID:          id,
		Author:         deref(req.Author),
		AuthorFallback: fallback,
		Content:        *req.Content,
	})
	respond(w, r, http.StatusCreated, resp, err)
}
