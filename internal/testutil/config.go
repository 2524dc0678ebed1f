package testutil

import "os"

const (
	// Environment variables read by tests
	TestDatabaseURL = "AXIOM_TEST_DATABASE_URL"
	TestRedisAddr   = "AXIOM_TEST_REDIS_ADDR"
	TestAPIKey      = "AXIOM_TEST_API_KEY"

	DefaultTestAPIKey = "test-key"
)

// GetTestValue returns the environment value for envVar or defaultValue.
func GetTestValue(envVar, defaultValue string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultValue
}

// GetTestAPIKey returns the API key handlers under test accept.
func GetTestAPIKey() string {
	return GetTestValue(TestAPIKey, DefaultTestAPIKey)
}

// GetTestDatabaseURL returns a disposable database DSN, or "" when
// integration tests should be skipped.
func GetTestDatabaseURL() string {
	return os.Getenv(TestDatabaseURL)
}

// GetTestRedisAddr returns a Redis address, or "" when Redis tests should
// be skipped.
func GetTestRedisAddr() string {
	return os.Getenv(TestRedisAddr)
}
