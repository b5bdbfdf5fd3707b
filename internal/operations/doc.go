// Package operations runs a daily yield-curve snapshot load.
//
// An Orchestrator run moves through a fixed set of states:
//
//	initialized -> resolving_prev_date -> extracting -> loading -> committed
//
// Any failure moves the run to rolled_back. One transaction covers the whole
// run, so a failure in the last extraction pass discards the rows staged by
// the earlier passes. There is no retry state.
//
// Observers registered with WithObserver are called synchronously on every
// transition. RunTracer records a span per run with a child span per state,
// plus run, row and error metrics.
package operations
