package main

import (
	"fmt"
	"os"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(dspxml.KindOf(err).ExitCode())
	}
}
