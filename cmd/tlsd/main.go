package main

import (
	"fmt"
	"os"

	"github.com/annetutil/tlsengine/cmd/tlsd/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
