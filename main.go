package main

import (
	"github.com/quicktalk/quicktalk/cmd"
	"github.com/quicktalk/quicktalk/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
