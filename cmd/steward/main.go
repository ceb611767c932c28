package main

import "github.com/stewardhq/steward/internal/cli"

func main() {
	cli.Execute()
}
