package main

import "github.com/deicod/ermquery/internal/cli"

func main() {
	cli.Execute()
}
