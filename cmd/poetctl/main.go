package main

import (
	"fmt"
	"os"

	"github.com/poet-enclave/simulator/cmd/poetctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
