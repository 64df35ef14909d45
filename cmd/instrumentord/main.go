package main

import (
	"instrumentor/internal/cli"
)

func main() {
	cli.Execute()
}
