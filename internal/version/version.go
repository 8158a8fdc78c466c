// Package version holds build metadata, set at link time:
//
//	go build -ldflags "-X github.com/ndewijer/Trading-Simulator-Backend/internal/version.Version=1.2.0"
package version

// Version is the release of the running binary.
var Version = "dev"

// Commit is the git revision the binary was built from.
var Commit = "unknown"
