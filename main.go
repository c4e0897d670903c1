// The main package for the scholar-trend executable.
package main

import (
	"github.com/stromning/scholar-trend/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
