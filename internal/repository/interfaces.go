// Package repository はデータ永続化のインターフェースと、
// メモリ／PostgreSQLの2つの実装を提供する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cynco/irportal/internal/model"
)

// ErrNotFound は親レコード（回答先のAsk等）が存在しない場合に返される。
var ErrNotFound = errors.New("repository: not found")

// PrincipalRepository は利用者データの永続化インターフェース。
type PrincipalRepository interface {
	// Upsert は利用者を作成、または既存行のプロフィールとUpdatedAtを更新する。
	// CreatedAtは初回作成時の値を維持する。
	Upsert(ctx context.Context, p *model.Principal) (*model.Principal, error)
	// FindByID は指定IDの利用者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Principal, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しなくてもエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MetricsRepository は会社KPI（シングルトン）の永続化インターフェース。
type MetricsRepository interface {
	// Get はKPIを取得する。まだ作成されていない場合はnilを返す。
	Get(ctx context.Context) (*model.Metrics, error)
	// Update はパッチを適用して保存する。行が無い場合はデフォルト値から作成する。
	// UpdatedAtは常に現在時刻になる。
	Update(ctx context.Context, patch model.MetricsPatch) (*model.Metrics, error)
}

// UpdateRepository は会社アップデートの永続化インターフェース。
type UpdateRepository interface {
	// List は作成日時の新しい順に全件返す。
	List(ctx context.Context) ([]model.CompanyUpdate, error)
	Create(ctx context.Context, in model.NewCompanyUpdate) (*model.CompanyUpdate, error)
	// Update は部分更新する。IDが存在しない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.CompanyUpdatePatch) (*model.CompanyUpdate, error)
	// Delete は削除する。IDが存在しない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// StakeholderRepository はキャップテーブルの永続化インターフェース。削除は提供しない。
type StakeholderRepository interface {
	// List はID昇順で全件返す。
	List(ctx context.Context) ([]model.Stakeholder, error)
	Create(ctx context.Context, in model.NewStakeholder) (*model.Stakeholder, error)
	// Update は部分更新する。IDが存在しない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.StakeholderPatch) (*model.Stakeholder, error)
}

// MilestoneRepository は資金調達タイムラインの永続化インターフェース。
type MilestoneRepository interface {
	// List はID昇順で全件返す。
	List(ctx context.Context) ([]model.Milestone, error)
	Create(ctx context.Context, in model.NewMilestone) (*model.Milestone, error)
	// Update は部分更新する。IDが存在しない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.MilestonePatch) (*model.Milestone, error)
	// Delete は削除する。IDが存在しない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// DocumentRepository はデータルーム書類の永続化インターフェース。更新は提供しない。
type DocumentRepository interface {
	// List は日付の新しい順に全件返す。
	List(ctx context.Context) ([]model.Document, error)
	Create(ctx context.Context, in model.NewDocument) (*model.Document, error)
	// Delete は削除する。IDが存在しない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// AskRepository は投資家への依頼の永続化インターフェース。
type AskRepository interface {
	// List は作成日時の新しい順に全件返す。
	List(ctx context.Context) ([]model.Ask, error)
	// FindByID は指定IDのAskを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Ask, error)
	Create(ctx context.Context, in model.NewAsk) (*model.Ask, error)
	// Update は部分更新する。IDが存在しない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.AskPatch) (*model.Ask, error)
	// Delete は削除する。関連する回答も削除される。IDが存在しない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
	// IncrementViews は閲覧数をちょうど1増やす。IDが存在しない場合はfalseを返す。
	IncrementViews(ctx context.Context, id int64) (bool, error)
}

// ResponseRepository はAskへの回答の永続化インターフェース。削除は提供しない。
type ResponseRepository interface {
	// ListByAsk は指定Askの回答を作成日時の新しい順に返す。
	ListByAsk(ctx context.Context, askID int64) ([]model.Response, error)
	// Create は回答を作成し、Askの回答数を関連回答の件数で再計算する。
	// Askが存在しない場合はErrNotFoundを返す。
	Create(ctx context.Context, in model.NewResponse) (*model.Response, error)
}

// Store は全リポジトリを束ねる。アプリケーション起動時に1つ構築され、
// 各コンポーネントに渡され、終了時にCloseされる。
type Store struct {
	Principals   PrincipalRepository
	Sessions     SessionRepository
	Metrics      MetricsRepository
	Updates      UpdateRepository
	Stakeholders StakeholderRepository
	Milestones   MilestoneRepository
	Documents    DocumentRepository
	Asks         AskRepository
	Responses    ResponseRepository

	// Backend はログ出力用のバックエンド名（"memory" または "postgres"）。
	Backend string

	ping  func(ctx context.Context) error
	close func() error
}

// Ping はバックエンドの疎通を確認する。メモリストアでは常にnilを返す。
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close はバックエンドのリソースを解放する。
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
