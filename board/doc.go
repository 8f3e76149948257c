// Package board defines the narrow capability contract every transport
// back-end (serial bootloader, JTAG runner, stlink, flash file) must
// satisfy, plus the codec for the fixed-size attributes table boards
// expose at a well-known flash offset.
package board
