package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cynco/irportal/internal/model"
	"github.com/cynco/irportal/internal/seed"
)

// memoryDB はプロセス内のデータ保持領域。全コレクションを1つのRWMutexで保護し、
// パッチのマージは書き込みロック下で読み出しから書き戻しまでを行う。
// 呼び出し側にはコピーを返すため、返却値を変更しても保持データに影響しない。
type memoryDB struct {
	mu  sync.RWMutex
	now func() time.Time

	principals map[string]model.Principal
	sessions   map[string]model.Session
	metrics    *model.Metrics

	updates      map[int64]model.CompanyUpdate
	stakeholders map[int64]model.Stakeholder
	milestones   map[int64]model.Milestone
	documents    map[int64]model.Document
	asks         map[int64]model.Ask
	responses    map[int64]model.Response

	// コレクションごとのID採番。削除後も再利用しない。
	nextMetricsID     int64
	nextUpdateID      int64
	nextStakeholderID int64
	nextMilestoneID   int64
	nextDocumentID    int64
	nextAskID         int64
	nextResponseID    int64
}

// MemoryOption はメモリストアの構築オプション。
type MemoryOption func(*memoryDB)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) MemoryOption {
	return func(db *memoryDB) {
		db.now = now
	}
}

// NewMemoryStore はプロセス内メモリを使うStoreを生成する。
// dataがnilでなければKPI、キャップテーブル、タイムラインを投入する。
func NewMemoryStore(data *seed.Data, opts ...MemoryOption) (*Store, error) {
	db := &memoryDB{
		now:          time.Now,
		principals:   make(map[string]model.Principal),
		sessions:     make(map[string]model.Session),
		updates:      make(map[int64]model.CompanyUpdate),
		stakeholders: make(map[int64]model.Stakeholder),
		milestones:   make(map[int64]model.Milestone),
		documents:    make(map[int64]model.Document),
		asks:         make(map[int64]model.Ask),
		responses:    make(map[int64]model.Response),
	}
	for _, opt := range opts {
		opt(db)
	}

	store := &Store{
		Principals:   &memoryPrincipalRepo{db: db},
		Sessions:     &memorySessionRepo{db: db},
		Metrics:      &memoryMetricsRepo{db: db},
		Updates:      &memoryUpdateRepo{db: db},
		Stakeholders: &memoryStakeholderRepo{db: db},
		Milestones:   &memoryMilestoneRepo{db: db},
		Documents:    &memoryDocumentRepo{db: db},
		Asks:         &memoryAskRepo{db: db},
		Responses:    &memoryResponseRepo{db: db},
		Backend:      "memory",
	}

	if data != nil {
		if err := Seed(context.Background(), store, data); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Seed はシードデータのKPI、キャップテーブル、タイムラインをStoreに投入する。
// アカウントは認証情報ストアが扱うためここでは投入しない。
func Seed(ctx context.Context, s *Store, data *seed.Data) error {
	if data.Metrics != nil {
		if _, err := s.Metrics.Update(ctx, data.Metrics.Patch()); err != nil {
			return fmt.Errorf("failed to seed metrics: %w", err)
		}
	}
	for _, in := range data.NewStakeholders() {
		if _, err := s.Stakeholders.Create(ctx, in); err != nil {
			return fmt.Errorf("failed to seed stakeholder %q: %w", in.Name, err)
		}
	}
	for _, in := range data.NewMilestones() {
		if _, err := s.Milestones.Create(ctx, in); err != nil {
			return fmt.Errorf("failed to seed milestone %q: %w", in.Title, err)
		}
	}
	return nil
}

// newestFirst は作成日時の降順、同時刻ならID降順で並べる。
func newestFirst(ti, tj time.Time, idi, idj int64) bool {
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return idi > idj
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ---- principals ----

type memoryPrincipalRepo struct{ db *memoryDB }

func (r *memoryPrincipalRepo) Upsert(_ context.Context, p *model.Principal) (*model.Principal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	row := *p
	row.UpdatedAt = now
	if existing, ok := r.db.principals[p.ID]; ok {
		row.CreatedAt = existing.CreatedAt
	} else {
		row.CreatedAt = now
	}
	r.db.principals[row.ID] = row
	return &row, nil
}

func (r *memoryPrincipalRepo) FindByID(_ context.Context, id string) (*model.Principal, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.principals[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ---- sessions ----

type memorySessionRepo struct{ db *memoryDB }

func (r *memorySessionRepo) Create(_ context.Context, session *model.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[session.ID] = *session
	return nil
}

func (r *memorySessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.sessions[id]
	if !ok || s.Expired(r.db.now()) {
		return nil, nil
	}
	return &s, nil
}

func (r *memorySessionRepo) DeleteByID(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.sessions, id)
	return nil
}

func (r *memorySessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for id, s := range r.db.sessions {
		if s.Expired(now) {
			delete(r.db.sessions, id)
			n++
		}
	}
	return n, nil
}

// ---- metrics ----

type memoryMetricsRepo struct{ db *memoryDB }

func (r *memoryMetricsRepo) Get(_ context.Context) (*model.Metrics, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if r.db.metrics == nil {
		return nil, nil
	}
	m := *r.db.metrics
	return &m, nil
}

func (r *memoryMetricsRepo) Update(_ context.Context, patch model.MetricsPatch) (*model.Metrics, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	var m model.Metrics
	if r.db.metrics != nil {
		m = *r.db.metrics
	} else {
		r.db.nextMetricsID++
		m = model.DefaultMetrics(now)
		m.ID = r.db.nextMetricsID
	}
	m.Apply(patch)
	m.UpdatedAt = now

	stored := m
	r.db.metrics = &stored
	return &m, nil
}

// ---- updates ----

type memoryUpdateRepo struct{ db *memoryDB }

func (r *memoryUpdateRepo) List(_ context.Context) ([]model.CompanyUpdate, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]model.CompanyUpdate, 0, len(r.db.updates))
	for _, u := range r.db.updates {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *memoryUpdateRepo) Create(_ context.Context, in model.NewCompanyUpdate) (*model.CompanyUpdate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.nextUpdateID++
	u := model.CompanyUpdate{
		ID:        r.db.nextUpdateID,
		Title:     in.Title,
		Content:   in.Content,
		Author:    in.Author,
		Type:      in.Type,
		CreatedAt: r.db.now(),
	}
	r.db.updates[u.ID] = u
	return &u, nil
}

func (r *memoryUpdateRepo) Update(_ context.Context, id int64, patch model.CompanyUpdatePatch) (*model.CompanyUpdate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.updates[id]
	if !ok {
		return nil, nil
	}
	u.Apply(patch)
	r.db.updates[id] = u
	return &u, nil
}

func (r *memoryUpdateRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.updates[id]; !ok {
		return false, nil
	}
	delete(r.db.updates, id)
	return true, nil
}

// ---- stakeholders ----

type memoryStakeholderRepo struct{ db *memoryDB }

func (r *memoryStakeholderRepo) List(_ context.Context) ([]model.Stakeholder, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]model.Stakeholder, 0, len(r.db.stakeholders))
	for _, s := range r.db.stakeholders {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryStakeholderRepo) Create(_ context.Context, in model.NewStakeholder) (*model.Stakeholder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.nextStakeholderID++
	s := model.Stakeholder{
		ID:           r.db.nextStakeholderID,
		Name:         in.Name,
		Title:        in.Title,
		Type:         in.Type,
		Shares:       in.Shares,
		Percentage:   in.Percentage,
		SecurityType: in.SecurityType,
		Initials:     in.Initials,
	}
	r.db.stakeholders[s.ID] = s
	return &s, nil
}

func (r *memoryStakeholderRepo) Update(_ context.Context, id int64, patch model.StakeholderPatch) (*model.Stakeholder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.stakeholders[id]
	if !ok {
		return nil, nil
	}
	s.Apply(patch)
	r.db.stakeholders[id] = s
	return &s, nil
}

// ---- milestones ----

type memoryMilestoneRepo struct{ db *memoryDB }

// cloneMilestone はポインタフィールドを複製し、保持データとの共有を断つ。
func cloneMilestone(m model.Milestone) model.Milestone {
	m.Amount = copyIntPtr(m.Amount)
	m.Investors = copyIntPtr(m.Investors)
	return m
}

func (r *memoryMilestoneRepo) List(_ context.Context) ([]model.Milestone, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]model.Milestone, 0, len(r.db.milestones))
	for _, m := range r.db.milestones {
		out = append(out, cloneMilestone(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryMilestoneRepo) Create(_ context.Context, in model.NewMilestone) (*model.Milestone, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.nextMilestoneID++
	m := model.Milestone{
		ID:          r.db.nextMilestoneID,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Status:      in.Status,
		Amount:      copyIntPtr(in.Amount),
		Investors:   copyIntPtr(in.Investors),
		Icon:        in.Icon,
	}
	r.db.milestones[m.ID] = m
	out := cloneMilestone(m)
	return &out, nil
}

func (r *memoryMilestoneRepo) Update(_ context.Context, id int64, patch model.MilestonePatch) (*model.Milestone, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m, ok := r.db.milestones[id]
	if !ok {
		return nil, nil
	}
	m = cloneMilestone(m)
	m.Apply(patch)
	r.db.milestones[id] = m
	out := cloneMilestone(m)
	return &out, nil
}

func (r *memoryMilestoneRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.milestones[id]; !ok {
		return false, nil
	}
	delete(r.db.milestones, id)
	return true, nil
}

// ---- documents ----

type memoryDocumentRepo struct{ db *memoryDB }

func (r *memoryDocumentRepo) List(_ context.Context) ([]model.Document, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]model.Document, 0, len(r.db.documents))
	for _, d := range r.db.documents {
		d.Description = copyStringPtr(d.Description)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].Date, out[j].Date, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *memoryDocumentRepo) Create(_ context.Context, in model.NewDocument) (*model.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.nextDocumentID++
	d := model.Document{
		ID:          r.db.nextDocumentID,
		Name:        in.Name,
		Description: copyStringPtr(in.Description),
		Category:    in.Category,
		Type:        in.Type,
		Date:        r.db.now(),
		URL:         in.URL,
		Source:      in.Source,
	}
	r.db.documents[d.ID] = d
	out := d
	out.Description = copyStringPtr(d.Description)
	return &out, nil
}

func (r *memoryDocumentRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.documents[id]; !ok {
		return false, nil
	}
	delete(r.db.documents, id)
	return true, nil
}

// ---- asks ----

type memoryAskRepo struct{ db *memoryDB }

func (r *memoryAskRepo) List(_ context.Context) ([]model.Ask, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]model.Ask, 0, len(r.db.asks))
	for _, a := range r.db.asks {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *memoryAskRepo) FindByID(_ context.Context, id int64) (*model.Ask, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	a, ok := r.db.asks[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *memoryAskRepo) Create(_ context.Context, in model.NewAsk) (*model.Ask, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.nextAskID++
	a := model.Ask{
		ID:          r.db.nextAskID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Urgency:     in.Urgency,
		Icon:        in.Icon,
		CreatedAt:   r.db.now(),
	}
	r.db.asks[a.ID] = a
	return &a, nil
}

func (r *memoryAskRepo) Update(_ context.Context, id int64, patch model.AskPatch) (*model.Ask, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.asks[id]
	if !ok {
		return nil, nil
	}
	a.Apply(patch)
	r.db.asks[id] = a
	return &a, nil
}

func (r *memoryAskRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.asks[id]; !ok {
		return false, nil
	}
	delete(r.db.asks, id)
	for rid, resp := range r.db.responses {
		if resp.AskID == id {
			delete(r.db.responses, rid)
		}
	}
	return true, nil
}

func (r *memoryAskRepo) IncrementViews(_ context.Context, id int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.asks[id]
	if !ok {
		return false, nil
	}
	a.Views++
	r.db.asks[id] = a
	return true, nil
}

// ---- responses ----

type memoryResponseRepo struct{ db *memoryDB }

func (r *memoryResponseRepo) ListByAsk(_ context.Context, askID int64) ([]model.Response, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]model.Response, 0)
	for _, resp := range r.db.responses {
		if resp.AskID == askID {
			out = append(out, resp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *memoryResponseRepo) Create(_ context.Context, in model.NewResponse) (*model.Response, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.asks[in.AskID]
	if !ok {
		return nil, ErrNotFound
	}

	r.db.nextResponseID++
	resp := model.Response{
		ID:        r.db.nextResponseID,
		AskID:     in.AskID,
		Author:    in.Author,
		Content:   in.Content,
		CreatedAt: r.db.now(),
	}
	r.db.responses[resp.ID] = resp

	count := 0
	for _, existing := range r.db.responses {
		if existing.AskID == in.AskID {
			count++
		}
	}
	a.Responses = count
	r.db.asks[in.AskID] = a

	return &resp, nil
}

// compile-time interface check
var (
	_ PrincipalRepository   = (*memoryPrincipalRepo)(nil)
	_ SessionRepository     = (*memorySessionRepo)(nil)
	_ MetricsRepository     = (*memoryMetricsRepo)(nil)
	_ UpdateRepository      = (*memoryUpdateRepo)(nil)
	_ StakeholderRepository = (*memoryStakeholderRepo)(nil)
	_ MilestoneRepository   = (*memoryMilestoneRepo)(nil)
	_ DocumentRepository    = (*memoryDocumentRepo)(nil)
	_ AskRepository         = (*memoryAskRepo)(nil)
	_ ResponseRepository    = (*memoryResponseRepo)(nil)
)
