package main

import (
	"os"

	"github.com/solatis/blockkeeper/cmd/blockkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
