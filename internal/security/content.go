// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentRenderer は会社アップデート本文（Markdown）を安全なHTMLに変換し、
// 投資家の回答などプレーンテキストのフィールドからマークアップを除去する。
package security

import (
	"bytes"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ContentRenderer は利用者入力のコンテンツを表示用に変換する。
type ContentRenderer interface {
	// RenderMarkdown はMarkdownをHTMLに変換し、許可リストでサニタイズする。
	// 空文字列の入力には空文字列を返す。
	RenderMarkdown(markdown string) string
	// StripMarkup は全てのタグを除去し、前後の空白を除いたプレーンテキストを返す。
	StripMarkup(text string) string
}

// contentRenderer はContentRendererの実装。
// goldmarkとbluemondayのポリシーはいずれも並行利用して安全。
type contentRenderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
	strict   *bluemonday.Policy
}

// NewContentRenderer はContentRendererの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: 段落・見出し・リスト・引用・コード・強調・表・a・img
//   - script, iframe, style および全てのon*イベント属性は除去
//   - URLはhttpsとmailtoのみ許可
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
func NewContentRenderer() *contentRenderer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemes("https", "mailto")

	return &contentRenderer{
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   p,
		strict:   bluemonday.StrictPolicy(),
	}
}

// RenderMarkdown はMarkdownをHTMLに変換してサニタイズする。
// 変換に失敗した場合は本文をエスケープした段落を返す。
func (r *contentRenderer) RenderMarkdown(markdown string) string {
	if markdown == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(markdown), &buf); err != nil {
		slog.Warn("failed to convert markdown", slog.String("error", err.Error()))
		return "<p>" + html.EscapeString(markdown) + "</p>"
	}
	return strings.TrimSpace(string(r.policy.SanitizeBytes(buf.Bytes())))
}

// StripMarkup はタグを除去する。StrictPolicyはエンティティにエスケープするため、
// 保存値がHTMLとして二重にエスケープされないよう元に戻す。
func (r *contentRenderer) StripMarkup(text string) string {
	return strings.TrimSpace(html.UnescapeString(r.strict.Sanitize(text)))
}

// compile-time interface check
var _ ContentRenderer = (*contentRenderer)(nil)
