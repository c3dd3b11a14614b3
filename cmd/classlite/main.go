// Command classlite is the entry point for the classlite review server.
package main

import (
	"os"

	"github.com/andukdahacker/classlite-sub004/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
