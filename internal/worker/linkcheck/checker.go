// Package linkcheck はデータルーム書類のリンク切れを定期的に検査する。
// リクエストはSSRF対策済みのHTTPクライアントで送信する。
package linkcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cynco/irportal/internal/metrics"
	"github.com/cynco/irportal/internal/model"
)

const defaultMaxConcurrency = 4

// DocumentLister は書類の一覧を返す。
type DocumentLister interface {
	List(ctx context.Context) ([]model.Document, error)
}

// URLValidator はリクエスト前にURLを静的に検証する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Recorder はリンクチェックの結果を記録する。
type Recorder interface {
	RecordLinkCheck(result string, duration time.Duration)
}

// Result は1件の書類に対する検査結果。
type Result struct {
	DocumentID int64
	URL        string
	Outcome    string // metrics.LinkOK, LinkBroken, LinkBlocked, LinkUnreachable
	StatusCode int
	Err        error
	Duration   time.Duration
}

// Checker は全書類のURLへHEADリクエストを送り、到達性を分類する。
type Checker struct {
	documents      DocumentLister
	validator      URLValidator
	client         *http.Client
	recorder       Recorder
	logger         *slog.Logger
	maxConcurrency int
}

// NewChecker はCheckerを生成する。clientにはsafeurlでラップしたクライアントを渡す。
// recorderはnilでもよい。
func NewChecker(documents DocumentLister, validator URLValidator, client *http.Client, recorder Recorder, logger *slog.Logger) *Checker {
	return &Checker{
		documents:      documents,
		validator:      validator,
		client:         client,
		recorder:       recorder,
		logger:         logger,
		maxConcurrency: defaultMaxConcurrency,
	}
}

// Run は全書類を1回検査する。個々のリンクの失敗はエラーにせず、ログとメトリクスに記録する。
func (c *Checker) Run(ctx context.Context) error {
	_, err := c.CheckAll(ctx)
	return err
}

// CheckAll は全書類を検査し、書類の並び順で結果を返す。
// semaphoreで同時リクエスト数を制限する。
func (c *Checker) CheckAll(ctx context.Context) ([]Result, error) {
	start := time.Now()

	docs, err := c.documents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	results := make([]Result, len(docs))
	sem := make(chan struct{}, c.maxConcurrency)
	var wg sync.WaitGroup

	for i, doc := range docs {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, doc model.Document) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = c.check(ctx, doc)
		}(i, doc)
	}
	wg.Wait()

	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Outcome]++
	}
	c.logger.Info("link check completed",
		slog.Int("document_count", len(docs)),
		slog.Int("ok", counts[metrics.LinkOK]),
		slog.Int("broken", counts[metrics.LinkBroken]),
		slog.Int("blocked", counts[metrics.LinkBlocked]),
		slog.Int("unreachable", counts[metrics.LinkUnreachable]),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return results, nil
}

func (c *Checker) check(ctx context.Context, doc model.Document) Result {
	start := time.Now()
	res := Result{DocumentID: doc.ID, URL: doc.URL}

	if err := c.validator.ValidateURL(doc.URL); err != nil {
		res.Outcome = metrics.LinkBlocked
		res.Err = err
	} else {
		res.StatusCode, res.Err = c.probe(ctx, doc.URL)
		res.Outcome = Classify(res.StatusCode, res.Err)
	}
	res.Duration = time.Since(start)

	if c.recorder != nil {
		c.recorder.RecordLinkCheck(res.Outcome, res.Duration)
	}
	if res.Outcome != metrics.LinkOK {
		attrs := []any{
			slog.Int64("document_id", doc.ID),
			slog.String("url", doc.URL),
			slog.String("result", res.Outcome),
		}
		if res.StatusCode != 0 {
			attrs = append(attrs, slog.Int("http_status", res.StatusCode))
		}
		if res.Err != nil {
			attrs = append(attrs, slog.String("error", res.Err.Error()))
		}
		c.logger.Warn("document link check failed", attrs...)
	}
	return res
}

// probe はHEADを送り、405/501の場合はGETで再試行する。
func (c *Checker) probe(ctx context.Context, url string) (int, error) {
	status, err := c.send(ctx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		return c.send(ctx, http.MethodGet, url)
	}
	return status, err
}

func (c *Checker) send(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "irportal-linkcheck/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}

// Classify はHTTPステータスとエラーをリンクチェック結果に分類する。
// 2xx/3xxはok、4xx/5xxはbroken、送信エラーはunreachable。
func Classify(statusCode int, err error) string {
	switch {
	case err != nil:
		return metrics.LinkUnreachable
	case statusCode >= 200 && statusCode < 400:
		return metrics.LinkOK
	default:
		return metrics.LinkBroken
	}
}
