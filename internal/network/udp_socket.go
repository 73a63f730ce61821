package network

import (
	"fmt"
	"log"
	"net"
	"time"
)

// UDPSocket provides non-blocking UDP I/O: Open binds a local address when
// a port is given, or an ephemeral port when port is 0 (the pattern the
// transceiver package uses for a client talking to a fixed remote).
type UDPSocket struct {
	conn      *net.UDPConn
	address   string
	port      int
	localAddr *net.UDPAddr
}

// NewUDPSocket creates a UDP socket bound to a specific address and port
// (client mode with a fixed local endpoint).
func NewUDPSocket(address string, port int) *UDPSocket {
	return &UDPSocket{
		address: address,
		port:    port,
	}
}

// NewUDPSocketServer creates a UDP socket for server mode: bind to any
// address on the given port, or an ephemeral port when port is 0.
func NewUDPSocketServer(port int) *UDPSocket {
	return &UDPSocket{
		address: "",
		port:    port,
	}
}

// Open creates the socket and binds it per the constructor's mode.
func (s *UDPSocket) Open() error {
	var err error

	if s.port > 0 {
		if s.address == "" {
			s.localAddr = &net.UDPAddr{IP: net.IPv4zero, Port: s.port}
		} else {
			s.localAddr = &net.UDPAddr{IP: net.ParseIP(s.address), Port: s.port}
			if s.localAddr.IP == nil {
				return fmt.Errorf("invalid address: %s", s.address)
			}
		}

		s.conn, err = net.ListenUDP("udp4", s.localAddr)
		if err != nil {
			log.Printf("Error opening bound UDP socket: %v", err)
			return err
		}

		log.Printf("UDP socket bound to %s", s.conn.LocalAddr().String())
	} else {
		s.localAddr = &net.UDPAddr{IP: net.IPv4zero, Port: 0}

		s.conn, err = net.ListenUDP("udp4", s.localAddr)
		if err != nil {
			log.Printf("Error opening unbound UDP socket: %v", err)
			return err
		}

		log.Printf("UDP socket created (unbound) on %s", s.conn.LocalAddr().String())
	}

	// Read renews a 1ms deadline on every call, so no read blocks longer.
	err = s.conn.SetReadDeadline(time.Now())
	if err != nil {
		s.conn.Close()
		return err
	}

	return nil
}

// Read waits at most 1ms for a datagram. Returns (0, nil, nil) when none
// arrives in that time, (-1, nil, err) on a hard error.
func (s *UDPSocket) Read(buffer []byte) (int, *net.UDPAddr, error) {
	if s.conn == nil {
		return -1, nil, fmt.Errorf("socket not open")
	}

	s.conn.SetReadDeadline(time.Now().Add(time.Millisecond))

	n, addr, err := s.conn.ReadFromUDP(buffer)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, nil, nil
		}
		log.Printf("UDP read error: %v", err)
		return -1, nil, err
	}

	return n, addr, nil
}

// Write sends data to the given address.
func (s *UDPSocket) Write(buffer []byte, addr *net.UDPAddr) error {
	if s.conn == nil {
		return fmt.Errorf("socket not open")
	}

	_, err := s.conn.WriteToUDP(buffer, addr)
	if err != nil {
		log.Printf("UDP write error: %v", err)
		return err
	}

	return nil
}

// Close closes the UDP socket.
func (s *UDPSocket) Close() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		log.Printf("UDP socket closed")
	}
}

// Lookup resolves hostname to an IP address, preferring a literal IP.
func Lookup(hostname string) (net.IP, error) {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip, nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil, err
	}

	for _, ip := range ips {
		if ip.To4() != nil {
			return ip, nil
		}
	}

	return nil, fmt.Errorf("no IPv4 address found for %s", hostname)
}

// ParseUDPAddr resolves an address:port pair into a *net.UDPAddr.
func ParseUDPAddr(address string, port int) (*net.UDPAddr, error) {
	ip, err := Lookup(address)
	if err != nil {
		return nil, err
	}

	return &net.UDPAddr{
		IP:   ip,
		Port: port,
	}, nil
}
