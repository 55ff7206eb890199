// retrace explores recorded AI coding assistant sessions.
package main

import (
	"os"

	"github.com/retracehq/retrace/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
