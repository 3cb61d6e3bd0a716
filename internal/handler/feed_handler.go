package handler

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cynco/irportal/internal/portal"
)

// UpdateLister は会社アップデートの一覧を返す。
type UpdateLister interface {
	ListUpdates(ctx context.Context) ([]portal.UpdateView, error)
}

// FeedConfig はRSSフィードのチャンネル情報。
type FeedConfig struct {
	BaseURL string
	Title   string
}

// FeedHandler は会社アップデートをRSS 2.0として配信する。
type FeedHandler struct {
	updates UpdateLister
	config  FeedConfig
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(updates UpdateLister, config FeedConfig) *FeedHandler {
	if config.Title == "" {
		config.Title = "Company Updates"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &FeedHandler{updates: updates, config: config}
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	Author      string  `xml:"author,omitempty"`
	Category    string  `xml:"category,omitempty"`
	Description string  `xml:"description"`
	PubDate     string  `xml:"pubDate"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Feed GET /api/updates/feed
// アイテムは作成日時の新しい順。descriptionにはサニタイズ済みHTMLを入れる。
func (h *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	updates, err := h.updates.ListUpdates(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       h.config.Title,
			Link:        h.config.BaseURL + "/",
			Description: "Investor updates",
			Items:       make([]rssItem, 0, len(updates)),
		},
	}
	if len(updates) > 0 {
		doc.Channel.LastBuildDate = updates[0].CreatedAt.UTC().Format(time.RFC1123Z)
	}
	for _, u := range updates {
		link := fmt.Sprintf("%s/updates/%d", h.config.BaseURL, u.ID)
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       u.Title,
			Link:        link,
			GUID:        rssGUID{IsPermaLink: true, Value: link},
			Author:      u.Author,
			Category:    string(u.Type),
			Description: u.ContentHTML,
			PubDate:     u.CreatedAt.UTC().Format(time.RFC1123Z),
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		handleServiceError(w, r, fmt.Errorf("failed to encode feed: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}
