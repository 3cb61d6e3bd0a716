package model

import "time"

// DocumentCategory はデータルーム上の書類カテゴリ。
type DocumentCategory string

const (
	DocumentLegal     DocumentCategory = "Legal"
	DocumentFinancial DocumentCategory = "Financial"
	DocumentPitch     DocumentCategory = "Pitch"
)

// Valid は定義済みのカテゴリかどうかを返す。
func (c DocumentCategory) Valid() bool {
	switch c {
	case DocumentLegal, DocumentFinancial, DocumentPitch:
		return true
	default:
		return false
	}
}

// DocumentType はファイル形式。
type DocumentType string

const (
	DocumentPDF        DocumentType = "pdf"
	DocumentExcel      DocumentType = "excel"
	DocumentPowerPoint DocumentType = "powerpoint"
	DocumentWord       DocumentType = "word"
)

// Valid は定義済みの形式かどうかを返す。
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentPDF, DocumentExcel, DocumentPowerPoint, DocumentWord:
		return true
	default:
		return false
	}
}

// Document は外部ストレージ（Google Drive、OneDrive等）上の書類へのリンク。
// 作成と削除のみで更新はできない。Dateは作成時刻。
type Document struct {
	ID          int64            `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description" db:"description"`
	Category    DocumentCategory `json:"category" db:"category"`
	Type        DocumentType     `json:"type" db:"type"`
	Date        time.Time        `json:"date" db:"date"`
	URL         string           `json:"url" db:"url"`
	Source      string           `json:"source" db:"source"`
}

// NewDocument は書類作成時の入力。
type NewDocument struct {
	Name        string
	Description *string
	Category    DocumentCategory
	Type        DocumentType
	URL         string
	Source      string
}
