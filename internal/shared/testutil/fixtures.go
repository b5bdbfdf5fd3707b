package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// FullCurvesDocument exercises every curve kind, including nested copies that
// must be skipped. Expected extraction in order:
//
//	money_market: ON (AIC), 3M (MM), 2024-03-15 with toDate 2024-06-17 (AIC)
//	swap:         5Y (AIC), 18M (MM)
//	inflation:    10Y (AIC), 0Y (MM)
//	spread:       EDZ24 (FUT), 2W via tenor fallback (MM)
const FullCurvesDocument = `<?xml version="1.0" encoding="UTF-8"?>
<Curves>
  <YieldCurve ccy="EUR">
    <MoneyMarketQuotes ccy="EUR" rateFixingindex="ESTR">
      <Quote tenor="ON" midRate="3.90"/>
      <Quote tenor="3M" midRate="3.95"/>
      <Quote tenor="" startDate="2024-03-15" endDate="2024-06-17" midRate="3.97"/>
    </MoneyMarketQuotes>
    <SwapRates ccy="EUR" rateFixingIndex="EURIBOR">
      <Quote term="5Y" midRate="2.35"/>
      <Quote term="18M" midRate=" 2.80 "/>
    </SwapRates>
    <SwapCurve>
      <MoneyMarketQuotes ccy="EUR" rateFixingindex="EURIBOR">
        <Quote tenor="6M" midRate="3.80"/>
      </MoneyMarketQuotes>
      <Wrapper>
        <SwapRates ccy="EUR" rateFixingIndex="EURIBOR">
          <Quote term="30Y" midRate="2.60"/>
        </SwapRates>
      </Wrapper>
    </SwapCurve>
  </YieldCurve>
  <InflationSwap ccy="EUR" indexType="HICPXT">
    <Element maturity="10Y">2.10</Element>
    <Element maturity="0Y">2.50</Element>
  </InflationSwap>
  <InflationCurve>
    <InflationSwap ccy="EUR" indexType="FRCPI">
      <Element maturity="5Y">2.00</Element>
    </InflationSwap>
  </InflationCurve>
  <SpreadCurve ccy="USD" rateFixingIndex="SOFR">
    <Quote term="EDZ24" midRate="0.15"/>
    <Quote tenor="2W" midRate="0.05"/>
  </SpreadCurve>
</Curves>
`

// FullCurvesRowCount is the number of records FullCurvesDocument yields
const FullCurvesRowCount = 9

// EmptyCurvesDocument has a root element and nothing to extract
const EmptyCurvesDocument = `<?xml version="1.0"?><Curves/>`

// SingleSwapDocument yields exactly one swap record
const SingleSwapDocument = `<Curves>
  <SwapRates ccy="EUR" rateFixingIndex="EURIBOR">
    <Quote term="5Y" midRate="2.35"/>
  </SwapRates>
</Curves>`

// BadSpreadDocument stages valid rows from the first three passes and then
// fails in the spread pass on a non-numeric midRate
const BadSpreadDocument = `<Curves>
  <MoneyMarketQuotes ccy="EUR" rateFixingindex="ESTR">
    <Quote tenor="1W" midRate="3.90"/>
  </MoneyMarketQuotes>
  <SwapRates ccy="EUR" rateFixingIndex="EURIBOR">
    <Quote term="2Y" midRate="2.70"/>
  </SwapRates>
  <InflationSwap ccy="EUR" indexType="HICPXT">
    <Element maturity="3Y">2.20</Element>
  </InflationSwap>
  <SpreadCurve ccy="USD" rateFixingIndex="SOFR">
    <Quote term="1Y" midRate="n/a"/>
  </SpreadCurve>
</Curves>`

// WriteDocument writes content to a file under a fresh temp dir and returns its path
func WriteDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xds", "transformedXML.xml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create document dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
	return path
}
