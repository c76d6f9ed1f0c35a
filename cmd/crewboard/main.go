// crewboard is a live dashboard client for multi-agent project runs.
package main

import (
	"fmt"
	"os"

	"github.com/crewboard/go-crewboard/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
