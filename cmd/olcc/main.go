package main

import (
	"os"

	"github.com/samvad-hq/liquor-catalog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
