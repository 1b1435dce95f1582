// Command bst is the BST study gacha: archive study material, clear quiz
// dungeons and matching bombs for gems, and pull literary agents.
package main

import (
	"os"

	"github.com/sskkslay-netizen/Bst/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
