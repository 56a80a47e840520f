// RawKey - Waters MassLynx raw data import tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/RawKey/cmd/rawkey/cmd"
	"github.com/ChrisMcGann/RawKey/internal/log"
)

func main() {
	err := cmd.Execute()
	log.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
