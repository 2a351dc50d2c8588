package main

import (
	"os"

	"github.com/lexiplay/soundtrack/cmd"
	"github.com/lexiplay/soundtrack/internal/runtime"
)

// Set by the build via -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	rt := &runtime.Context{Version: version, BuildDate: buildDate}
	if err := cmd.RootCommand(rt).Execute(); err != nil {
		os.Exit(1)
	}
}
