// Package config provides centralized configuration management for the
// yield-curve loader.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file (-config flag, config.yaml or configs/config.yaml)
//	3. Default values (lowest priority)
//
// A .env file in the working directory is read before anything else; its
// entries only fill variables that are not already set.
//
// # Environment Variables
//
// All environment variables follow the pattern MKTYIELD_<SECTION>_<KEY>:
//
//	MKTYIELD_SINK_DRIVER=postgres
//	MKTYIELD_SINK_HOST=db.internal
//	MKTYIELD_SINK_ENCRYPTED_PASSWORD=...
//	MKTYIELD_BUSINESS_DAY_SOURCE=calendar
//	MKTYIELD_EXTRACTION_ON_RECORD_ERROR=skip
//	MKTYIELD_LOGGING_LEVEL=debug
//
// # Usage
//
//	cfg, err := config.Load(*configPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
