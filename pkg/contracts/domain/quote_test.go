package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMarketType_IsValid(t *testing.T) {
	tests := []struct {
		name string
		mt   MarketType
		want bool
	}{
		{"money market", MarketTypeMoneyMarket, true},
		{"futures", MarketTypeFutures, true},
		{"other", MarketTypeOther, true},
		{"empty", MarketType(""), false},
		{"lowercase", MarketType("mm"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mt.IsValid())
		})
	}
}

func TestSnapshot_NewQuoteRecord(t *testing.T) {
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Location:        "LDN",
		SystemLocation:  "PARIS",
		Application:     "SUMMIT",
		CurveType:       "YCURVE",
		CurveID:         "MSSEOD",
		AsOfDate:        asOf,
		PrevDate:        asOf.AddDate(0, 0, -1),
		ImportTimestamp: asOf.Add(18 * time.Hour),
	}

	rec := snap.NewQuoteRecord(CurveKindSpread)

	assert.Equal(t, "LDN", rec.Location)
	assert.Equal(t, "PARIS", rec.SystemLocation)
	assert.Equal(t, "SUMMIT", rec.Application)
	assert.Equal(t, "YCURVE", rec.CurveType)
	assert.Equal(t, "MSSEOD", rec.CurveID)
	assert.Equal(t, asOf, rec.AsOfDate)
	assert.Equal(t, asOf.AddDate(0, 0, -1), rec.PrevDate)
	assert.Equal(t, CurveKindSpread, rec.Kind)
	assert.True(t, rec.Rate.Equal(decimal.Zero))
	assert.True(t, rec.Spread.Equal(decimal.Zero))
	assert.Nil(t, rec.ToDate)
}

func TestCountByKind(t *testing.T) {
	records := []QuoteRecord{
		{Kind: CurveKindSwap},
		{Kind: CurveKindSwap},
		{Kind: CurveKindSpread},
	}

	counts := CountByKind(records)

	assert.Equal(t, 2, counts[CurveKindSwap])
	assert.Equal(t, 1, counts[CurveKindSpread])
	assert.Equal(t, 0, counts[CurveKindMoneyMarket])
}
