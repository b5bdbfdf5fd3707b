package dataprocessing

import "mktyield/pkg/contracts/domain"

// CurveSpec describes how one kind of curve element is turned into quote records
type CurveSpec struct {
	Kind domain.CurveKind
	// Element is the curve element name searched anywhere in the document
	Element string
	// ExcludeUnder skips curve elements with an ancestor of this name; empty disables
	ExcludeUnder string
	// QuoteElement is the per-quote descendant element
	QuoteElement string
	CurrencyAttr string
	// IndexAttr is the secondary classifier attribute; its spelling varies by curve kind
	IndexAttr string
	// LabelAttrs are tried in order; the first non-empty value is the term
	LabelAttrs []string
	// ValueAttr holds the numeric value; empty means the quote element's text
	ValueAttr string
	// Spread stores the value as the spread with a zero rate
	Spread bool
	// DateRangeFallback uses startDate as the term and endDate as the to-date when the label is empty
	DateRangeFallback bool
}

// CurveSpecs are the supported curve kinds, in extraction order
var CurveSpecs = []CurveSpec{
	{
		Kind:              domain.CurveKindMoneyMarket,
		Element:           "MoneyMarketQuotes",
		ExcludeUnder:      "SwapCurve",
		QuoteElement:      "Quote",
		CurrencyAttr:      "ccy",
		IndexAttr:         "rateFixingindex",
		LabelAttrs:        []string{"tenor"},
		ValueAttr:         "midRate",
		DateRangeFallback: true,
	},
	{
		Kind:         domain.CurveKindSwap,
		Element:      "SwapRates",
		ExcludeUnder: "SwapCurve",
		QuoteElement: "Quote",
		CurrencyAttr: "ccy",
		IndexAttr:    "rateFixingIndex",
		LabelAttrs:   []string{"term"},
		ValueAttr:    "midRate",
	},
	{
		Kind:         domain.CurveKindInflationSwap,
		Element:      "InflationSwap",
		ExcludeUnder: "InflationCurve",
		QuoteElement: "Element",
		CurrencyAttr: "ccy",
		IndexAttr:    "indexType",
		LabelAttrs:   []string{"maturity"},
	},
	{
		Kind:         domain.CurveKindSpread,
		Element:      "SpreadCurve",
		QuoteElement: "Quote",
		CurrencyAttr: "ccy",
		IndexAttr:    "rateFixingIndex",
		LabelAttrs:   []string{"term", "tenor"},
		ValueAttr:    "midRate",
		Spread:       true,
	},
}

// SpecFor returns the CurveSpec registered for kind
func SpecFor(kind domain.CurveKind) (CurveSpec, bool) {
	for _, s := range CurveSpecs {
		if s.Kind == kind {
			return s, true
		}
	}
	return CurveSpec{}, false
}
