package main

import "github.com/mvp-joe/bytemetrics/internal/cli"

func main() {
	cli.Execute()
}
