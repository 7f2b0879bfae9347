package app

// Version is the botdash release, set at build time with
// -ldflags "-X github.com/small-frappuccino/botdash/pkg/app.Version=v1.2.3".
var Version = "dev"

// AppName names the config, cache and log directories.
const AppName = "botdash"
