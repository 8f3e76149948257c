// Package layout implements the app-layout engine: extracting the
// installed apps from a flash region's TBF linked list, merging them
// against a set of TAB apps under a replace/erase/sticky policy,
// computing a page-aligned placement that respects fixed addresses and
// MPU alignment, and writing the result through a board.Interface.
//
// Nothing in this package performs I/O beyond the board.Interface it
// is handed. Merging and placement take no board.Interface at all and
// work only on app.App values (placement updates their headers), which
// keeps them independently testable without a transport.
package layout
