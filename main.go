package main

import (
	"os"

	bhwi "github.com/wizardsardine/bhwi/cmd/bhwi"
)

func main() {
	if err := bhwi.Execute(); err != nil {
		os.Exit(1)
	}
}
