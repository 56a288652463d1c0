// Package constants holds the wire-level names shared by the store
// transport and its clients.
package constants

// Version names the wire format. Stores and clients refuse to interoperate
// across versions.
const Version = "1"

const (
	VersionHeader  = "X-Cells-Vers"
	RevisionHeader = "X-Cells-Version"

	EntityPath = "/entity/"
	StatsPath  = "/stats"
	RootPath   = "/"
)
