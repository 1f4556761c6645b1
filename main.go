// Package main provides the entry point for the disbot application.
package main

import "github.com/Raikerian/disbot/internal/cli"

func main() {
	cli.Execute()
}
