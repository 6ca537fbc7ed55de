package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// confirm asks the user for confirmation before proceeding with a
// destructive operation. If the user declines or gives an invalid
// response, the program exits.
func confirm() {
	fmt.Print(`WARNING: this will modify region files in-place. You should make a backup before proceeding.

Proceed? (y/N): `)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		log.Infof("Exiting.")
		os.Exit(1)
	}
	switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
	case "y", "yes":
		return
	case "n", "no", "":
		log.Infof("Exiting.")
		os.Exit(1)
	default:
		log.Errorf("invalid response: %q, expected y or n", scanner.Text())
		os.Exit(1)
	}
}
