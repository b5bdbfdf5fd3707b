package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketType is the instrument category persisted in the Mkttype column
type MarketType string

const (
	MarketTypeMoneyMarket MarketType = "MM"
	MarketTypeFutures     MarketType = "FUT"
	MarketTypeOther       MarketType = "AIC"
)

// IsValid reports whether the market type is one of the known codes
func (m MarketType) IsValid() bool {
	switch m {
	case MarketTypeMoneyMarket, MarketTypeFutures, MarketTypeOther:
		return true
	}
	return false
}

// CurveKind identifies which kind of curve element produced a quote
type CurveKind string

const (
	CurveKindMoneyMarket   CurveKind = "money_market"
	CurveKindSwap          CurveKind = "swap"
	CurveKindInflationSwap CurveKind = "inflation_swap"
	CurveKindSpread        CurveKind = "spread"
)

// CurveKinds lists the curve kinds in extraction order
var CurveKinds = []CurveKind{
	CurveKindMoneyMarket,
	CurveKindSwap,
	CurveKindInflationSwap,
	CurveKindSpread,
}

// Snapshot carries the run-wide values stamped on every quote record
type Snapshot struct {
	Location        string    `json:"location" validate:"required"`
	SystemLocation  string    `json:"system_location" validate:"required"`
	Application     string    `json:"application" validate:"required"`
	CurveType       string    `json:"curve_type" validate:"required"`
	CurveID         string    `json:"curve_id" validate:"required"`
	AsOfDate        time.Time `json:"as_of_date" validate:"required"`
	PrevDate        time.Time `json:"prev_date" validate:"required"`
	ImportTimestamp time.Time `json:"import_timestamp" validate:"required"`
}

// QuoteRecord is a single row of the daily yield-curve snapshot
type QuoteRecord struct {
	Location        string          `json:"location" validate:"required"`
	SystemLocation  string          `json:"system_location" validate:"required"`
	Application     string          `json:"application" validate:"required"`
	CurveType       string          `json:"curve_type" validate:"required"`
	AsOfDate        time.Time       `json:"as_of_date" validate:"required"`
	PrevDate        time.Time       `json:"prev_date" validate:"required"`
	CurveID         string          `json:"curve_id" validate:"required"`
	MarketType      MarketType      `json:"market_type" validate:"required,oneof=MM FUT AIC"`
	Term            string          `json:"term" validate:"required"`
	ToDate          *time.Time      `json:"to_date,omitempty"`
	Rate            decimal.Decimal `json:"rate"`
	Spread          decimal.Decimal `json:"spread"`
	ImportTimestamp time.Time       `json:"import_timestamp" validate:"required"`
	Commodity1      string          `json:"commodity1"`
	Commodity2      string          `json:"commodity2"`
	Kind            CurveKind       `json:"kind" validate:"required"`
}

// NewQuoteRecord stamps the snapshot values onto an empty record
func (s Snapshot) NewQuoteRecord(kind CurveKind) QuoteRecord {
	return QuoteRecord{
		Location:        s.Location,
		SystemLocation:  s.SystemLocation,
		Application:     s.Application,
		CurveType:       s.CurveType,
		AsOfDate:        s.AsOfDate,
		PrevDate:        s.PrevDate,
		CurveID:         s.CurveID,
		ImportTimestamp: s.ImportTimestamp,
		Rate:            decimal.Zero,
		Spread:          decimal.Zero,
		Kind:            kind,
	}
}

// CountByKind tallies records per curve kind
func CountByKind(records []QuoteRecord) map[CurveKind]int {
	counts := make(map[CurveKind]int, len(CurveKinds))
	for _, r := range records {
		counts[r.Kind]++
	}
	return counts
}
