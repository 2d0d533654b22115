// flexmock runs expectation scenarios.
//
// A scenario is a YAML file declaring mocks, their expectations and a script
// of calls. The engine plays the calls, verifies every mock and reports the
// outcome of each call.
//
// Usage:
//
//	flexmock run scenario.yaml              # Human readable report
//	flexmock run --json < scenario.yaml     # JSON report from stdin
//	flexmock describe scenario.yaml         # Print declared expectations
//	flexmock version
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
