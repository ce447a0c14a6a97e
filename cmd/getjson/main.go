package main

import (
	"os"

	"github.com/samvad-hq/getjson/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
