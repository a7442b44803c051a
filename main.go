// The main package for the dealcrawl executable.
package main

import (
	"github.com/mergertracker/dealcrawl/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
