package fulfill

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Candidate is one marketplace listing considered for purchase.
type Candidate struct {
	ItemID int64
	Price  decimal.Decimal
}

// DeliveredItem is the credential bundle returned by a successful purchase.
type DeliveredItem struct {
	ItemID     int64
	Login      string
	Password   string
	Phone      string
	ExternalID string
	Cost       decimal.Decimal
}

// LoginCode is a verification code issued for a delivered item.
type LoginCode struct {
	Code     string
	IssuedAt time.Time
}

// SearchQuery constrains a marketplace search.
type SearchQuery struct {
	Region   string
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	Origins  []string
}

// Marketplace is the external inventory source.
type Marketplace interface {
	// Search returns listings matching query. An empty result is not an error.
	Search(ctx context.Context, query SearchQuery) ([]Candidate, error)
	// Buy purchases one listing. Rejections are reported as *MarketError.
	Buy(ctx context.Context, itemID int64) (DeliveredItem, error)
	// LoginCodes returns the codes issued for a delivered item, newest first.
	LoginCodes(ctx context.Context, itemID int64) ([]LoginCode, error)
}

// MarketError carries the textual reasons a marketplace call was rejected with.
type MarketError struct {
	Status  int
	Reasons []string
}

// Error implements error.
func (e *MarketError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("marketplace rejected request: status %d", e.Status)
	}

	return fmt.Sprintf("marketplace rejected request: status %d: %s", e.Status, strings.Join(e.Reasons, ", "))
}

// HasReason reports whether any reason equals code.
func (e *MarketError) HasReason(code string) bool {
	for _, reason := range e.Reasons {
		if reason == code {
			return true
		}
	}

	return false
}

// Transient reports whether the rejection may clear on retry: retry_request, rate
// limiting, server errors, or a failure status without any reasons.
func (e *MarketError) Transient() bool {
	if e.HasReason(RetryRequestCode) {
		return true
	}
	if e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError {
		return true
	}

	return len(e.Reasons) == 0
}

// FailureReason flattens err into the text used for classification.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	var marketErr *MarketError
	if errors.As(err, &marketErr) && len(marketErr.Reasons) > 0 {
		return strings.Join(marketErr.Reasons, ", ")
	}

	return err.Error()
}
