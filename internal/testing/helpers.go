package testing

import (
	"os"
	"testing"
)

// Environment variables selecting the test mode.
const (
	EnvUnitOnly        = "ANLOG_UNIT_TESTS_ONLY"
	EnvRunIntegration  = "ANLOG_RUN_INTEGRATION_TESTS"
	EnvNATSURL         = "NATS_URL"
	defaultNATSTestURL = "nats://127.0.0.1:4222"
)

// Unit returns true if running in unit test mode.
// Unit tests should be fast and not require external services.
// ANLOG_UNIT_TESTS_ONLY=true wins over everything; otherwise integration
// tests only run when ANLOG_RUN_INTEGRATION_TESTS=true and -short is unset.
func Unit() bool {
	if os.Getenv(EnvUnitOnly) == "true" {
		return true
	}

	if os.Getenv(EnvRunIntegration) == "true" {
		return false
	}

	return true
}

// Integration returns true if running in integration test mode.
// Integration tests may require external services like a NATS server.
func Integration() bool {
	return !Unit() && !testing.Short()
}

// SkipIfUnit skips the test if running in unit test mode.
func SkipIfUnit(t *testing.T, message ...string) {
	t.Helper()
	if !Integration() {
		msg := "Skipping integration test in unit mode"
		if len(message) > 0 {
			msg = message[0]
		}
		t.Skip(msg)
	}
}

// SkipIfIntegration skips the test if running in integration test mode.
func SkipIfIntegration(t *testing.T, message ...string) {
	t.Helper()
	if Integration() {
		msg := "Skipping unit-only test in integration mode"
		if len(message) > 0 {
			msg = message[0]
		}
		t.Skip(msg)
	}
}

// NATSURL returns the server integration tests publish to: NATS_URL, or
// the local default port.
func NATSURL() string {
	if url := os.Getenv(EnvNATSURL); url != "" {
		return url
	}
	return defaultNATSTestURL
}
