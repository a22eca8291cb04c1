// Command preloadd is the adaptive readahead daemon: it observes process
// launches, learns pairwise co-occurrence patterns, and issues advisory
// readahead hints to warm the page cache ahead of need.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
