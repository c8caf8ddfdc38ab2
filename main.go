package main

import (
	"os"

	"github.com/jonesrussell/north-cloud/corpus/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
