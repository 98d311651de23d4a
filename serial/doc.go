// Package serial provides the byte-oriented RS-232 transport used by the
// cleanroom instruments.
//
// A Port is built from a device path and functional options. Its
// configuration is fixed at construction; to change framing or timeouts,
// build a new Port.
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(9600),
//	    serial.WithParity(serial.ParityNone),
//	    serial.WithTermination("\r\n"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
// # Reads and timeouts
//
// The line is configured in raw mode with VMIN=0, so Read returns 0, nil once
// the read timeout elapses without data instead of blocking. BytesWaiting
// reports how many bytes the kernel has already queued (TIOCINQ) and is the
// building block for the polling loops in the protocol package.
//
// Write fails with a *TransportError when the port is closed or when the
// write does not complete within the write timeout:
//
//	if _, err := port.Write([]byte("D\r\n")); errors.Is(err, serial.ErrWriteTimeout) {
//	    // instrument is not draining its input
//	}
//
// # Port discovery
//
//	ports, _ := serial.ListPorts()
//	for _, p := range ports {
//	    info, _ := serial.GetPortInfo(p)
//	    fmt.Println(info.Path, info.Description, info.VendorID, info.ProductID)
//	}
//
// Only Linux is supported; the transport talks to the tty layer through
// golang.org/x/sys/unix.
package serial
