package main

import (
	"os"

	"lv-paperledger/cmd/paperctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
