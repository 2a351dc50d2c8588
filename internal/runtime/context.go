// Package runtime contains build metadata separate from user configuration
package runtime

import "fmt"

// Context contains runtime metadata that is not user-configurable.
// It is injected at startup through linker flags.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// Release returns the release identifier reported to telemetry.
func (c *Context) Release() string {
	if c == nil || c.Version == "" {
		return "soundtrack@dev"
	}
	return fmt.Sprintf("soundtrack@%s", c.Version)
}

// String renders the version line printed by the CLI.
func (c *Context) String() string {
	if c == nil || c.Version == "" {
		return "soundtrack dev"
	}
	if c.BuildDate == "" {
		return "soundtrack " + c.Version
	}
	return fmt.Sprintf("soundtrack %s (built %s)", c.Version, c.BuildDate)
}
