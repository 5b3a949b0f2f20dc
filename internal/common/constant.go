package common

// AppName is used for the data directory, env prefix and tracer names.
const AppName = "studycircle"

// DataDirName is the per-user directory holding durable client state.
const DataDirName = "." + AppName
