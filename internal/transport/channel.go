// Package transport owns the raw TCP plumbing shared by the ingestion
// service and the load generator: socket option tuning and connection
// establishment with retry.
package transport

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// SocketBufferSize is applied to both SO_RCVBUF and SO_SNDBUF on every
// listening and connected socket. 128 KiB keeps the kernel queues deep
// enough to absorb bursts at the target rates.
const SocketBufferSize = 128 * 1024

// ListenControl is meant to be installed as net.ListenConfig.Control. It
// tunes the listening socket before bind: address reuse, keep-alive and
// deep kernel buffers.
func ListenControl(network, address string, c syscall.RawConn) error {
	var optErr error
	err := c.Control(func(fd uintptr) {
		optErr = setCommonOptions(int(fd))
	})
	if err != nil {
		return err
	}
	return optErr
}

// Tune applies the high-rate socket options to a connected socket:
// keep-alive, 128 KiB buffers and TCP_NODELAY so small batches are not
// coalesced by the kernel.
func Tune(conn net.Conn) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return fmt.Errorf("connection %T does not expose a raw socket", conn)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return fmt.Errorf("failed to access raw connection: %w", err)
	}

	var optErr error
	err = raw.Control(func(fd uintptr) {
		if optErr = setCommonOptions(int(fd)); optErr != nil {
			return
		}
		optErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if err != nil {
		return err
	}
	return optErr
}

// setCommonOptions tunes the options shared by listening and connected
// sockets.
func setCommonOptions(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return fmt.Errorf("SO_KEEPALIVE: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, SocketBufferSize); err != nil {
		return fmt.Errorf("SO_RCVBUF: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, SocketBufferSize); err != nil {
		return fmt.Errorf("SO_SNDBUF: %w", err)
	}
	return nil
}
