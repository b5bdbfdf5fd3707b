// Package shared holds helpers used across the loader's packages.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// log output and fixture documents in the feed's XML format.
package shared
