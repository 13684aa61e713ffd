package main

import (
	"github.com/typerush/typerush/internal/cli"
)

func main() {
	cli.Execute()
}
