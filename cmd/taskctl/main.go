// Package main is the entry point for the taskctl CLI.
// The CLI is the developer terminal tool for interacting with the task API.
package main

import (
	"os"

	"github.com/ajithabhiram/Kaiburr-task2/cmd/taskctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
