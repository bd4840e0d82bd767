// Package main is the entry point for the arccheck CLI.
package main

import "github.com/arccheck/arccheck/internal/cli"

func main() {
	cli.Execute()
}
