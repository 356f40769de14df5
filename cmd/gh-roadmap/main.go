package main

import "github.com/goblinsan/gh-roadmap/cmd/gh-roadmap/commands"

func main() {
	commands.Execute()
}
