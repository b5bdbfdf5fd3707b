// Package dataprocessing turns a transformed yield-curve XML document into
// quote records.
//
// # Architecture
//
// The package is organized into three parts:
//
// 1. Parser: loads the document from a DocumentSource into an etree tree
// 2. Curve specs: one table entry per curve kind naming its elements and attributes
// 3. Extractor: walks each curve kind in order, classifies labels and stages records
//
// Curve elements are searched anywhere in the document. Money market and swap
// curves found under a SwapCurve element, and inflation swaps under an
// InflationCurve element, belong to an aggregate curve and are skipped.
//
// # Usage
//
//	doc, err := dataprocessing.FileSource{Path: "xds/transformedXML.xml"}.Load(ctx)
//	if err != nil {
//	    return err
//	}
//
//	x := dataprocessing.NewExtractor(dataprocessing.ExtractOptions{}, validation.NewRecordValidator(), logger)
//	stats, err := x.ExtractAll(ctx, doc, snapshot, batch)
//
// # Classification
//
// Classify maps a term label to a market type: day, week and month tenors
// and 0Y are money market (MM), three capitals followed by two digits are
// futures (FUT), and everything else is AIC.
package dataprocessing
