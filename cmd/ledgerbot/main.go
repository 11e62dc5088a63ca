package main

import "ledgerbot/internal/cli"

func main() {
	cli.Execute()
}
