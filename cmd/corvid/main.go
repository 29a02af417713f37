// Command corvid is the entrypoint for the Corvid automated code review
// service CLI.
package main

import (
	"os"

	"github.com/corvid-review/corvid/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
