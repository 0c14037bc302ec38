// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Build metadata, overridden at link time:
//
//	go build -ldflags "-X github.com/papercomputeco/chatrelay/pkg/utils.Version=v0.1.0" ./cli/chatrelay
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
