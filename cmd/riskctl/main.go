// Command riskctl scores addresses from the terminal using the same pipeline
// as the HTTP service.
//
// Usage:
//
//	riskctl analyze 0xabc... --chain polygon
//	riskctl analyze 0xabc... --json
//	riskctl analyze 0xabc... --notify     # dispatch alerts to configured sinks
//	riskctl report 0xabc... --count 2     # file scam reports
package main

import (
	"fmt"
	"os"

	"github.com/mbd888/chainrisk/internal/config"
)

var version = "dev"

func main() {
	if err := newRootCmd(config.Load).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
