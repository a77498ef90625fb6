// Package main provides the entry point for the demo-sequences command-line tool
package main

import "github.com/amirphl/demo-sequences/app/commands"

func main() {
	commands.Execute()
}
