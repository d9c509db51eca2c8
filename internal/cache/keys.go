package cache

import "fmt"

// RateLimitKey names the request counter for one authenticated subject
// (an owner ID or an API key prefix).
func RateLimitKey(subject string) string {
	return fmt.Sprintf("ratelimit:%s", subject)
}
