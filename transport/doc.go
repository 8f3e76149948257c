// Package transport implements the stateful bootloader serial session:
// opening the port, entering and exiting bootloader mode, baud
// negotiation, the per-device-path mutual-exclusion gate, and the
// flash write/verify retry policy. It builds frames with package
// bootproto and exposes a board.Interface implementation, Serial, over
// any io.ReadWriteCloser.
//
// # Basic usage
//
//	conn := myserial.Open("/dev/ttyACM0", 115200)
//	tr := transport.NewSerial(conn, "/dev/ttyACM0",
//	    transport.WithLogger(myLogger),
//	    transport.WithProgressCallback(progressFunc),
//	)
//	if err := tr.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer tr.ExitBootloaderMode(ctx)
//
// This package does NOT implement hardware communication: callers
// supply an io.ReadWriteCloser for their specific serial stack (a real
// UART, a USB-serial bridge, or a mock for testing).
package transport
