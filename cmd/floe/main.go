package main

import (
	"github.com/jannskiee/floe/cmd/floe/cmd"
	"github.com/jannskiee/floe/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
