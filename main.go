package main

import (
	"os"

	"github.com/okdokhae/okdok/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
