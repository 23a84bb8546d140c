// Command ghostpost posts queued media to social platforms through a real browser.
package main

import (
	"os"

	"github.com/ghostpost/ghostpost/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
