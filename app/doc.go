// Package app models the objects the layout engine arranges in a flash
// apps region: apps discovered by walking flash, apps supplied from a
// TAB file, and padding used to keep the linked list traversable.
//
// Headers are owned by the App value that holds them; nothing in this
// package or layout holds a back-reference from a header to its App.
package app
