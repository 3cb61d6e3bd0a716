// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredSessionDeleter は期限切れセッションを削除する。
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeRecorder は削除件数を記録する。
type PurgeRecorder interface {
	RecordSessionsPurged(count int64)
}

// SessionCleanupJob は期限切れセッションの削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type SessionCleanupJob struct {
	sessions ExpiredSessionDeleter
	recorder PurgeRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionCleanupJob は新しいSessionCleanupJobを生成する。recorderはnilでもよい。
func NewSessionCleanupJob(sessions ExpiredSessionDeleter, recorder PurgeRecorder, logger *slog.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は現在時刻の時点で期限切れのセッションを削除する。
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.sessions.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("session cleanup failed", slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordSessionsPurged(deleted)
	}

	j.logger.Info("session cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
