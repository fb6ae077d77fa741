package main

import (
	"github.com/wesleyorama2/dutlat/internal/cli"
)

func main() {
	cli.Execute()
}
