// Package app wires configuration, logging, telemetry, the sink connection
// and the run orchestrator into one Application.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config.yaml and MKTYIELD_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Open the sink connection pool, decrypting the password if needed
//	4. Build the business day lookup, extractor, exporter and orchestrator
//
// Stop closes the pool, flushes telemetry and closes the log file.
package app
