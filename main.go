// The main package for the activity-heatmap executable.
package main

import (
	"github.com/JakeFAU/activity-heatmap/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
