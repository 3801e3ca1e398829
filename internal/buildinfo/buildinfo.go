package buildinfo

import "fmt"

// Set via -ldflags at build time
var (
	BuildTime  string
	CommitHash string
)

// Version describes the running binary
func Version() string {
	if CommitHash == "" {
		return "dev"
	}
	return fmt.Sprintf("%s (built %s)", CommitHash, BuildTime)
}
