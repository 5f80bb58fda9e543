// Package domain defines the persistence models of the summary service.
// These types are mapped with GORM and form the core data layer of the
// application.
package domain

import "time"

// SourceTypeText tags records whose source content is plain text.
const SourceTypeText = "TEXT"

// SummaryRecord captures one successful summarization: the original input,
// the model output, and when it was stored. Records are append-only; they are
// never updated after creation and only removed by explicit deletion.
//
// Fields:
//   - ID: auto-incremented primary key, assigned by the database.
//   - SourceType: origin tag of the content (currently always "TEXT").
//   - SourceContent: the original text submitted by the client.
//   - SummaryText: the completion returned by the model.
//   - TokensUsed: optional token count; left nil by the workflow.
//   - CreatedAt: set once at insert time; indexed for newest-first listing.
//
// JSON names stay camelCase so existing frontends keep working.
type SummaryRecord struct {
	ID            uint      `json:"id"                   gorm:"primaryKey;autoIncrement"`
	SourceType    string    `json:"sourceType"           gorm:"type:varchar(16);not null"`
	SourceContent string    `json:"sourceContent"        gorm:"type:text"`
	SummaryText   string    `json:"summaryText"          gorm:"type:text;not null"`
	TokensUsed    *int      `json:"tokensUsed,omitempty"`
	CreatedAt     time.Time `json:"createdAt"            gorm:"not null;index:idx_summary_created"`
}

// TableName returns the database table name for SummaryRecord.
func (SummaryRecord) TableName() string { return "summary_records" }
