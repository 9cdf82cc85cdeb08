package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Currency enum constants
const (
	CurrencyCRC = "CRC"
	CurrencyUSD = "USD"
)

// FinalInvoice is the settlement document attached to a request once it has
// been approved. It has its own identity and lifecycle but relates 1:1 to its
// owning request; API responses embed it in the request payload.
type FinalInvoice struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID uuid.UUID        `gorm:"type:uuid;uniqueIndex;not null" json:"request_id"`
	Request   *PurchaseRequest `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	Number    string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"number"`
	Date      time.Time        `gorm:"not null" json:"date"`
	Total     decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"total"`
	Currency  string           `gorm:"type:varchar(3);not null" json:"currency"` // CRC or USD
	URL       string           `gorm:"type:text" json:"url,omitempty"`
	IsValid   bool             `gorm:"not null;default:true" json:"is_valid"` // always true on creation, no validation pipeline yet
	CreatedAt time.Time        `json:"created_at"`
}

func (i *FinalInvoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ValidCurrency reports whether c is a supported invoice currency.
func ValidCurrency(c string) bool {
	return c == CurrencyCRC || c == CurrencyUSD
}
