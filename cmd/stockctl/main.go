// Command stockctl runs the scheduled and maintenance jobs against the configured store.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
