package mmdb

// libVersion is the version reported by LibVersion. It follows the MMDB C
// API's lib_version() operation, which exists so embedders can log which
// reader implementation produced a given lookup.
const libVersion = "1.0.0"

// LibVersion returns the reader implementation's version string.
func LibVersion() string {
	return libVersion
}
