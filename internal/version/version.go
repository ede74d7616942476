// Package version carries build metadata injected through -ldflags.
package version

import "fmt"

var (
	// Version is the release tag of the binary.
	Version = "dev"
	// Commit is the source revision the binary was built from.
	Commit = "unknown"
	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)

// UserAgent identifies feewatch towards remote endpoints.
func UserAgent() string {
	return fmt.Sprintf("feewatch/%s", Version)
}
