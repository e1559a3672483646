package main

import "github.com/mvp-joe/code-pairs/internal/cli"

func main() {
	cli.Execute()
}
