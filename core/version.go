package core

// Build information, overridden at link time with
// -ldflags "-X github.com/rkayurveda/storefront/core.Version=..."
var (
	// Version is the storefront release
	Version = "development"

	// BuildDate is set during build time
	BuildDate = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)

// APIVersion is the version of the JSON API served under /api
const APIVersion = "v1"
