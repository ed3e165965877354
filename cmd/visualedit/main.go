package main

import "github.com/animus-coder/visualedit/internal/cli"

func main() {
	cli.Execute()
}
