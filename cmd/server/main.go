// Package main is the taskflow-api command: the HTTP server together with
// the operator subcommands for migrations and permission grants.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
