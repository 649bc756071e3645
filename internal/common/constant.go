package common

// DefaultUserAgent is sent on outbound requests unless a profile sets its own
// User-Agent header.
const DefaultUserAgent = "cupload/1.0"

// DefaultContentType is used when no MIME type can be derived from a file name.
const DefaultContentType = "application/octet-stream"
