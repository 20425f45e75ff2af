package main

import "github.com/jtagtrace/jtagtrace/cmd/jtagtrace/cmd"

func main() {
	cmd.Execute()
}
