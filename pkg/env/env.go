// Package env holds the one-off lookups that sit outside the envconfig
// struct, like the PORT override the API binary honors on Cloud Run.
package env

import "os"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
