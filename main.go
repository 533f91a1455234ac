package main

import (
	cmd "github.com/rohmanhakim/recrawler/internal/cli"
)

func main() {
	cmd.Execute()
}
