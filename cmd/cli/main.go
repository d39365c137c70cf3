package main

import "github.com/stack-analysis/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
