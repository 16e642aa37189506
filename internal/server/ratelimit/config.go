package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Exact path, {id} segment pattern or "/"-terminated prefix
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// EnvPrefix prefixes the rate limit environment variables.
const EnvPrefix = "LIVE_RATE_LIMIT_"

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	if !getEnvBool(EnvPrefix+"ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt(EnvPrefix+"DEFAULT_LIMIT", 600),
		DefaultWindow:   getEnvDuration(EnvPrefix+"DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration(EnvPrefix+"CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(getEnvString(EnvPrefix+"WHITELIST", "")),
		Blacklist:       parseIPList(getEnvString(EnvPrefix+"BLACKLIST", "")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: Expensive or credential operations
		{Path: "/auth/login", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
		{Path: "/auth/register", Method: "POST", Limit: 5, Window: time.Hour, Burst: 2},
		{Path: "/host/resumes", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/host/resumes/{id}/analyze", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/presenters", Method: "POST", Limit: 5, Window: time.Hour, Burst: 2},

		// Tier 2: Audience writes. Reactions are tapped in bursts.
		{Path: "/reactions", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/ratings", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},
		{Path: "/chat", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/questions", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},
		{Path: "/questions/{id}/upvote", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},

		// Tier 3: Reads use the default limit
		// Tier 4: Health and feed streams are unlimited, see MatchEndpoint
	}
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	if list == "" {
		return result
	}

	ips := strings.Split(list, ",")
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}

	return result
}

