package main

import (
	"os"

	"vlmeval/internal/cli"
)

func main() { os.Exit(cli.Main()) }
