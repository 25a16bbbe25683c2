package main

import (
	"ragforge/cmd/cmd"
)

func main() {
	cmd.Execute()
}
