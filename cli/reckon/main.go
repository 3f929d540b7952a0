package main

import (
	"os"

	reckoncmder "github.com/papercomputeco/reckon/cmd/reckon"
)

func main() {
	cmd := reckoncmder.NewReckonCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
