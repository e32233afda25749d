// Package main is the weaverun CLI entry point: a thin launcher that starts
// the proxy on a free local port, rewrites a child process's environment to
// route its LLM traffic through it, and mirrors the child's exit code.
//
// Everything the proxy itself does — matching, forwarding, streaming,
// logging, sinking — lives in internal/ and is fully testable without this
// package; main only wires those pieces together and owns the process
// lifecycle around a spawned child.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "weaverun: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "weaverun",
	Short:         "Transparent logging proxy for LLM inference APIs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
}
