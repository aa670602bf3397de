package ledger

import (
	"github.com/pitabwire/frame/data"
	"github.com/shopspring/decimal"
)

// Record represents one stored expense.
type Record struct {
	data.BaseModel

	Description string          `gorm:"type:varchar(512);not null"                     json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"                    json:"amount"`
	Transcript  string          `gorm:"type:text"                                      json:"transcript,omitempty"`
	CaptureID   string          `gorm:"type:varchar(50);index:idx_record_capture"      json:"capture_id,omitempty"`
}

func (Record) TableName() string { return "expense_records" }
