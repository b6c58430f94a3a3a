// accountctl drives the account lifecycle flow from the terminal: it shows
// the account summary, cancels subscriptions, and runs the confirmation-
// gated account deletion against a running API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
