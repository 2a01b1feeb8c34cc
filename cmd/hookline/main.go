package main

import "github.com/nextlevelbuilder/hookline/internal/cli"

func main() {
	cli.Execute()
}
