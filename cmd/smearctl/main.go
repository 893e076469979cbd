package main

import "go-smear-analyzer/internal/cli"

func main() {
	cli.Execute()
}
