// Package tab parses Tock Application Bundle (TAB) files: uncompressed
// tar archives containing a metadata.toml descriptor and one compiled
// TBF per supported architecture.
package tab
