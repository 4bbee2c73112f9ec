// Package log provides simple leveled logging for netconfd.
//
// It is a small printf-style logger with colored level tags and four
// levels: DEBUG (verbose mode only), INFO, WARN and ERROR. Errors go
// to stderr, everything else to stdout unless SetForceStderr is used.
package log
