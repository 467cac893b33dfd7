package main // Entry point package

import "github.com/iliyamo/hall-reservation/internal/cli"

func main() {
	cli.Execute()
}
