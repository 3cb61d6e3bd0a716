package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cynco/irportal/internal/model"
)

// runStoreContract は両バックエンドで同一の振る舞いを要求する契約テスト。
// newStore は空のStoreを返すこと。
func runStoreContract(t *testing.T, newStore func(t *testing.T) *Store) {
	ctx := context.Background()

	t.Run("Metrics_未作成ならnilで初回更新でデフォルトから作成", func(t *testing.T) {
		s := newStore(t)

		got, err := s.Metrics.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)

		mrr := 1000
		m, err := s.Metrics.Update(ctx, model.MetricsPatch{MRR: &mrr})
		require.NoError(t, err)
		assert.Equal(t, 1000, m.MRR)
		assert.Equal(t, 0, m.Runway)
		assert.Equal(t, model.DefaultLastFundraise, m.LastFundraise)
		assert.False(t, m.UpdatedAt.IsZero())

		runway := 12
		m2, err := s.Metrics.Update(ctx, model.MetricsPatch{Runway: &runway})
		require.NoError(t, err)
		assert.Equal(t, m.ID, m2.ID)
		assert.Equal(t, 1000, m2.MRR, "省略したフィールドは維持される")
		assert.Equal(t, 12, m2.Runway)
		assert.False(t, m2.UpdatedAt.Before(m.UpdatedAt))
	})

	t.Run("Updates_作成と一覧と部分更新と削除", func(t *testing.T) {
		s := newStore(t)

		first, err := s.Updates.Create(ctx, model.NewCompanyUpdate{
			Title: "January", Content: "Hello", Author: "John", Type: model.UpdateTypeMonthly,
		})
		require.NoError(t, err)
		assert.Zero(t, first.Views)
		assert.Zero(t, first.Attachments)
		second, err := s.Updates.Create(ctx, model.NewCompanyUpdate{
			Title: "Q1", Content: "Quarter", Author: "John", Type: model.UpdateTypeQuarterly,
		})
		require.NoError(t, err)
		assert.Greater(t, second.ID, first.ID)

		list, err := s.Updates.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID, "新しい順")

		title := "January (revised)"
		updated, err := s.Updates.Update(ctx, first.ID, model.CompanyUpdatePatch{Title: &title})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, title, updated.Title)
		assert.Equal(t, "Hello", updated.Content)
		assert.Equal(t, model.UpdateTypeMonthly, updated.Type)

		missing, err := s.Updates.Update(ctx, 999999, model.CompanyUpdatePatch{Title: &title})
		require.NoError(t, err)
		assert.Nil(t, missing)

		ok, err := s.Updates.Delete(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.Updates.Delete(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Stakeholders_Acmeの持分を更新", func(t *testing.T) {
		s := newStore(t)

		acme, err := s.Stakeholders.Create(ctx, model.NewStakeholder{
			Name: "Acme Ventures", Title: "Lead Investor", Type: model.StakeholderInvestor,
			Shares: 800000, Percentage: 9.4, SecurityType: "SAFE", Initials: "AC",
		})
		require.NoError(t, err)

		shares, pct := 900000, 10.5
		got, err := s.Stakeholders.Update(ctx, acme.ID, model.StakeholderPatch{Shares: &shares, Percentage: &pct})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 900000, got.Shares)
		assert.InDelta(t, 10.5, got.Percentage, 1e-9)
		assert.Equal(t, "SAFE", got.SecurityType)
		assert.Equal(t, "Acme Ventures", got.Name)

		list, err := s.Stakeholders.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 900000, list[0].Shares)
	})

	t.Run("Milestones_nullクリアと削除", func(t *testing.T) {
		s := newStore(t)

		amount, investors := 500000, 3
		m, err := s.Milestones.Create(ctx, model.NewMilestone{
			Title: "Pre-Seed", Description: "Raised", Date: "March 2024",
			Status: model.MilestoneCompleted, Amount: &amount, Investors: &investors, Icon: "fas fa-rocket",
		})
		require.NoError(t, err)
		require.NotNil(t, m.Amount)

		got, err := s.Milestones.Update(ctx, m.ID, model.MilestonePatch{Investors: model.Null[int]()})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.Investors)
		require.NotNil(t, got.Amount, "省略したフィールドは維持される")
		assert.Equal(t, 500000, *got.Amount)

		got, err = s.Milestones.Update(ctx, m.ID, model.MilestonePatch{Amount: model.Some(750000)})
		require.NoError(t, err)
		assert.Equal(t, 750000, *got.Amount)

		ok, err := s.Milestones.Delete(ctx, m.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		list, err := s.Milestones.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		ok, err = s.Milestones.Delete(ctx, m.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Documents_作成と削除とID再利用なし", func(t *testing.T) {
		s := newStore(t)

		desc := "Signed SAFE"
		d1, err := s.Documents.Create(ctx, model.NewDocument{
			Name: "SAFE", Description: &desc, Category: model.DocumentLegal,
			Type: model.DocumentPDF, URL: "https://drive.google.com/file/d/abc", Source: "Google Drive",
		})
		require.NoError(t, err)
		require.NotNil(t, d1.Description)
		assert.False(t, d1.Date.IsZero())

		ok, err := s.Documents.Delete(ctx, d1.ID)
		require.NoError(t, err)
		require.True(t, ok)

		d2, err := s.Documents.Create(ctx, model.NewDocument{
			Name: "Deck", Category: model.DocumentPitch,
			Type: model.DocumentPowerPoint, URL: "https://onedrive.live.com/deck", Source: "OneDrive",
		})
		require.NoError(t, err)
		assert.Greater(t, d2.ID, d1.ID)
		assert.Nil(t, d2.Description)

		list, err := s.Documents.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Deck", list[0].Name)
	})

	t.Run("Asks_回答数は件数と一致し閲覧数は回数分増える", func(t *testing.T) {
		s := newStore(t)

		ask, err := s.Asks.Create(ctx, model.NewAsk{
			Title: "Intro to Series A leads", Description: "Looking for intros",
			Category: model.AskIntros, Urgency: model.UrgencyHigh, Icon: "fas fa-handshake",
		})
		require.NoError(t, err)

		const n = 5
		for i := 0; i < n; i++ {
			_, err := s.Responses.Create(ctx, model.NewResponse{AskID: ask.ID, Author: "Investor User", Content: "Happy to help"})
			require.NoError(t, err)
		}

		const k = 7
		for i := 0; i < k; i++ {
			ok, err := s.Asks.IncrementViews(ctx, ask.ID)
			require.NoError(t, err)
			require.True(t, ok)
		}

		got, err := s.Asks.FindByID(ctx, ask.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, n, got.Responses)
		assert.Equal(t, k, got.Views)

		responses, err := s.Responses.ListByAsk(ctx, ask.ID)
		require.NoError(t, err)
		assert.Len(t, responses, n)
		assert.Greater(t, responses[0].ID, responses[n-1].ID, "新しい順")

		title := "Intro to Series A leads (urgent)"
		updated, err := s.Asks.Update(ctx, ask.ID, model.AskPatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, n, updated.Responses, "部分更新でカウンタは変わらない")
		assert.Equal(t, k, updated.Views)
	})

	t.Run("Asks_存在しないIDへの閲覧と回答", func(t *testing.T) {
		s := newStore(t)

		ok, err := s.Asks.IncrementViews(ctx, 424242)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Responses.Create(ctx, model.NewResponse{AskID: 424242, Author: "x", Content: "y"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Asks_並行回答でも件数が一致する", func(t *testing.T) {
		s := newStore(t)

		ask, err := s.Asks.Create(ctx, model.NewAsk{
			Title: "Hiring", Description: "Senior engineer", Category: model.AskHiring,
			Urgency: model.UrgencyMedium, Icon: "fas fa-user",
		})
		require.NoError(t, err)

		const workers = 10
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Responses.Create(ctx, model.NewResponse{AskID: ask.ID, Author: "a", Content: "b"})
				assert.NoError(t, err)
				_, err = s.Asks.IncrementViews(ctx, ask.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.Asks.FindByID(ctx, ask.ID)
		require.NoError(t, err)
		assert.Equal(t, workers, got.Responses)
		assert.Equal(t, workers, got.Views)
	})

	t.Run("Principals_Upsertは作成日時を維持する", func(t *testing.T) {
		s := newStore(t)

		p := &model.Principal{ID: "admin-001", Email: "hello@cynco.io", FirstName: "Admin", LastName: "User", Role: model.RoleAdmin}
		first, err := s.Principals.Upsert(ctx, p)
		require.NoError(t, err)

		second, err := s.Principals.Upsert(ctx, p)
		require.NoError(t, err)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
		assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

		found, err := s.Principals.FindByID(ctx, "admin-001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, model.RoleAdmin, found.Role)

		missing, err := s.Principals.FindByID(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("Sessions_期限切れは見えず掃除される", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Principals.Upsert(ctx, &model.Principal{ID: "investor-001", Email: "investor@cynco.io", Role: model.RoleInvestor})
		require.NoError(t, err)

		now := time.Now()
		live := &model.Session{ID: "live", PrincipalID: "investor-001", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
		dead := &model.Session{ID: "dead", PrincipalID: "investor-001", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
		require.NoError(t, s.Sessions.Create(ctx, live))
		require.NoError(t, s.Sessions.Create(ctx, dead))

		got, err := s.Sessions.FindByID(ctx, "live")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "investor-001", got.PrincipalID)

		got, err = s.Sessions.FindByID(ctx, "dead")
		require.NoError(t, err)
		assert.Nil(t, got)

		n, err := s.Sessions.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.NoError(t, s.Sessions.DeleteByID(ctx, "live"))
		got, err = s.Sessions.FindByID(ctx, "live")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
