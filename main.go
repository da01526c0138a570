package main

import (
	"github.com/sidkik/cozyfuse/cmd"
	"github.com/sidkik/cozyfuse/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
