package main

import (
	"fmt"
	"os"

	"github.com/pitwall-io/pitwall/cmd/pw-ctl/app"
)

func main() {
	if err := app.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
