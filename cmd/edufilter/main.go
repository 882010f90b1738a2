package main

import "github.com/vietddude/edufilter/internal/cli"

func main() {
	cli.Execute()
}
