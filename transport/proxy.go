package transport

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// ProxyConfig routes a SocketStream through a SOCKS5 or HTTP CONNECT proxy.
type ProxyConfig struct {
	Type     string // "socks5" or "http"
	Host     string
	Port     uint16
	Username string
	Password string
}

// Address returns the proxy's host:port.
func (c *ProxyConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

// NewProxyDialer creates a dialer that connects through the proxy. timeout
// bounds the connection to the proxy itself; zero means no limit.
func NewProxyDialer(config *ProxyConfig, timeout time.Duration) (proxy.Dialer, error) {
	if config == nil {
		return nil, fmt.Errorf("proxy config cannot be nil")
	}
	forward := &net.Dialer{Timeout: timeout}

	switch config.Type {
	case "socks5":
		var auth *proxy.Auth
		if config.Username != "" || config.Password != "" {
			auth = &proxy.Auth{
				User:     config.Username,
				Password: config.Password,
			}
		}

		dialer, err := proxy.SOCKS5("tcp", config.Address(), auth, forward)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "NewProxyDialer",
				"proxy_addr": config.Address(),
				"error":      err.Error(),
			}).Error("Failed to create SOCKS5 dialer")
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		return dialer, nil

	case "http":
		u := &url.URL{Scheme: "http", Host: config.Address()}
		if config.Username != "" {
			if config.Password != "" {
				u.User = url.UserPassword(config.Username, config.Password)
			} else {
				u.User = url.User(config.Username)
			}
		}
		return &httpProxyDialer{proxyURL: u, forward: forward}, nil

	default:
		return nil, fmt.Errorf("unsupported proxy type: %s (must be 'socks5' or 'http')", config.Type)
	}
}

// proxyDial adapts a proxy configuration to the dial hook of SocketStream.
func proxyDial(config *ProxyConfig) func(network, addr string, timeout time.Duration) (net.Conn, error) {
	return func(network, addr string, timeout time.Duration) (net.Conn, error) {
		dialer, err := NewProxyDialer(config, timeout)
		if err != nil {
			return nil, err
		}

		logrus.WithFields(logrus.Fields{
			"function":   "proxyDial",
			"address":    addr,
			"proxy_type": config.Type,
			"proxy_addr": config.Address(),
		}).Debug("Dialing via proxy")

		conn, err := dialer.Dial(network, addr)
		if err != nil {
			return nil, fmt.Errorf("proxy dial failed: %w", err)
		}
		return conn, nil
	}
}

// httpProxyDialer implements the proxy.Dialer interface for HTTP CONNECT proxies.
type httpProxyDialer struct {
	proxyURL *url.URL
	forward  *net.Dialer
}

// Dial connects to the address via HTTP CONNECT proxy.
func (d *httpProxyDialer) Dial(network, addr string) (net.Conn, error) {
	if network != "tcp" {
		return nil, fmt.Errorf("HTTP CONNECT proxy only supports TCP, got: %s", network)
	}

	proxyConn, err := d.forward.Dial("tcp", d.proxyURL.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to proxy: %w", err)
	}

	connectReq := &http.Request{
		Method: "CONNECT",
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}
	if d.proxyURL.User != nil {
		username := d.proxyURL.User.Username()
		password, _ := d.proxyURL.User.Password()
		connectReq.SetBasicAuth(username, password)
	}

	if err := connectReq.Write(proxyConn); err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("failed to write CONNECT request: %w", err)
	}

	if d.forward.Timeout > 0 {
		if err := proxyConn.SetReadDeadline(time.Now().Add(d.forward.Timeout)); err != nil {
			proxyConn.Close()
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	// A reader larger than one byte could swallow data the server sends
	// right after the response, so read the header byte by byte.
	resp, err := http.ReadResponse(bufio.NewReaderSize(&byteReader{proxyConn}, 16), connectReq)
	if err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("failed to read CONNECT response: %w", err)
	}

	// The body of a CONNECT response is the tunnel; it is never drained.
	if resp.StatusCode != http.StatusOK {
		proxyConn.Close()
		return nil, fmt.Errorf("proxy returned non-200 status: %s", resp.Status)
	}

	if err := proxyConn.SetReadDeadline(time.Time{}); err != nil {
		proxyConn.Close()
		return nil, err
	}
	return proxyConn, nil
}

// byteReader hands out at most one byte per Read.
type byteReader struct {
	r net.Conn
}

func (b *byteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return b.r.Read(p)
}
