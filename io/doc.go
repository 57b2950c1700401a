// Package io provides the I/O device implementations for the umips
// simulator. The only device is the Console, which carries the
// integer, character, and string traffic of the system-call ABI
// between the simulated program and the host's standard streams.
package io
