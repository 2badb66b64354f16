//go:build e2e

package e2e_test

import "os"

// getenv returns the value of the environment variable k or def if empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// baseURL is the bakery ops backend under test, overridable so CI can point
// this suite at a docker-compose stack instead of localhost.
var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")
