package main

import (
	"github.com/Laisky/arxiv-mcp/cmd"
)

func main() {
	cmd.Execute()
}
