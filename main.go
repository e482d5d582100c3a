package main

import "github.com/stackdown/stackdown/cmd"

func main() {
	cmd.Execute()
}
