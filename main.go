// The main package for the jobscraper executable.
package main

import (
	"github.com/JakeFAU/jobboard-scraper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
