package youvisa

// Version is the release of this build, overridden at link time with
// -ldflags "-X github.com/aretw0/youvisa.Version=v1.2.3".
var Version = "0.1.0"
