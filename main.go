package main

import "github.com/dcxht/LOOPAVGER/cmd"

func main() {
	cmd.Execute()
}
