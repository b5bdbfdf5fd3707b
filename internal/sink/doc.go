// Package sink writes the daily yield-curve snapshot into the relational table.
//
// A TxContext holds one dedicated connection and one transaction for a whole
// run. Extraction passes stage records into it and Commit executes the fixed
// insert once per row before committing. Nothing reaches the table unless
// every row succeeds.
//
// Two dialects are supported: postgres through lib/pq for production and
// sqlite through modernc.org/sqlite for local runs and tests.
package sink
