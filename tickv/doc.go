// Package tickv implements the on-flash codec for Tock's TicKV
// key-value store: a log-structured database of fixed-size regions,
// each holding SipHash-2-4-addressed objects that are appended,
// invalidated in place, and periodically compacted.
//
// This package performs no I/O. Callers read a region's bytes from
// flash, hand them to Open, and write Binary back after a mutation.
package tickv
