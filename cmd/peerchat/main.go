package main

import "github.com/omochice/peerchat/internal/cli"

func main() {
	cli.Execute()
}
