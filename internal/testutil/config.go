package testutil

import (
	"os"
	"strconv"
)

const (
	// TestEbayAppID names the env var holding an app ID for tests that may
	// reach the real Finding API.
	TestEbayAppID = "TEST_EBAY_APP_ID"

	DefaultTestKey = "test-key"
)

// GetTestToken returns a test token from environment variable or default
func GetTestToken(envVar, defaultValue string) string {
	if token := os.Getenv(envVar); token != "" {
		return token
	}
	return defaultValue
}

// GetTestEbayAppID returns test app ID for eBay API
func GetTestEbayAppID() string {
	return GetTestToken(TestEbayAppID, DefaultTestKey)
}

// IsTestMode returns true unless TEST_MODE is set to a false value.
func IsTestMode() bool {
	testMode := os.Getenv("TEST_MODE")
	if testMode == "" {
		return true
	}

	enabled, _ := strconv.ParseBool(testMode)
	return enabled
}
