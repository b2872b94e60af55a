package main

import (
	"os"

	"modelshim/internal/cli"
)

func main() { os.Exit(cli.Main()) }
