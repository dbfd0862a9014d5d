package types

// Version is overwritten at build time with -ldflags "-X ..."
var Version = "dev"

// ServiceName identifies the tool in logs, reports and notifications
const ServiceName = "fontprov"
