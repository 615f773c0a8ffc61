package pergola

// Version is the library version, stamped into release builds.
const Version = "0.3.0"
