package version

// Set at build time:
//
//	go build -ldflags "-X github.com/ChristianF88/logstat/version.Version=1.2.0 -X github.com/ChristianF88/logstat/version.Date=2025-07-01T00:00:00Z"
var (
	Version = "dev"
	Date    = ""
)
