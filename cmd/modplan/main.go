// Command modplan validates, builds and applies Mod Plans offline.
package main

import (
	"os"

	"corisa-backend/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
