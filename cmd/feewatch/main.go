package main

import "feewatch/internal/cli"

func main() {
	cli.Execute()
}
