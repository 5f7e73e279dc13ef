package version

// Version is overridden at build time:
//
//	go build -ldflags "-X github.com/pompin/gameserver/pkg/version.Version=v0.2.0"
var Version = "dev"

func Get() string {
	return Version
}
