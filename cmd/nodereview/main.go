package main

import (
	"os"

	"github.com/dshills/nodereview/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
