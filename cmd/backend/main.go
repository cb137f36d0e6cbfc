// Command backend runs the service behind the container healthcheck.
//
// Usage:
//
//	# Serve the API on BACKEND_HTTP_ADDR with state under BACKEND_DATA_DIR
//	backend
//	backend serve
//
//	# One probe of the version endpoint, for a container HEALTHCHECK
//	backend healthcheck --url http://127.0.0.1:8081/api/version
//
//	# Apply the orchestrator's probe policy from outside the container
//	backend monitor --url http://backend:8081/api/version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
