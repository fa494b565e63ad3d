package sasl

import (
	"fmt"
	"net"

	"github.com/opd-ai/sasl/transport"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBufSize is the protection buffer size offered to the server.
// Mechanisms usually negotiate something smaller.
const DefaultMaxBufSize = 65536

// defaultMaxSSF stays below 0x8000 because some mechanism plugins store the
// strength in a signed 16 bit value.
const defaultMaxSSF = 0x7fff

// SecurityFlags restrict which mechanisms may be negotiated.
type SecurityFlags uint32

const (
	// SecNoPlaintext rejects mechanisms that send the password in the clear.
	SecNoPlaintext SecurityFlags = 1 << iota
	// SecNoActive rejects mechanisms open to active attacks.
	SecNoActive
	// SecNoDictionary rejects mechanisms open to dictionary attacks.
	SecNoDictionary
	// SecNoAnonymous rejects anonymous login.
	SecNoAnonymous
)

// SecurityProperties bound what the client accepts during negotiation.
type SecurityProperties struct {
	MinSSF     int
	MaxSSF     int
	MaxBufSize int
	Flags      SecurityFlags
}

// DefaultSecurityProperties returns the properties used when nothing is
// configured: any strength, a 64 KiB buffer, and no plaintext passwords.
func DefaultSecurityProperties() SecurityProperties {
	return SecurityProperties{
		MaxSSF:     defaultMaxSSF,
		MaxBufSize: DefaultMaxBufSize,
		Flags:      SecNoPlaintext,
	}
}

// ClientParams is everything a mechanism library needs to start a client
// negotiation for a connection.
type ClientParams struct {
	Service      string
	ServerFQDN   string
	LocalIPPort  string
	RemoteIPPort string
	Properties   SecurityProperties
	// ExternalSSF is the strength already provided by the transport. It is
	// only reported for accounts that run over TLS.
	ExternalSSF int
	Callbacks   []Callback
}

// NewClientParams prepares a client negotiation for conn. The mechanism
// library is initialized on first use.
func NewClientParams(conn *transport.Connection, props SecurityProperties, src CredentialSource) (*ClientParams, error) {
	if err := EnsureInitialized(); err != nil {
		return nil, err
	}

	acct := conn.Account()
	if acct == nil {
		return nil, ErrAccountType
	}
	service, err := ServiceName(acct.Type)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewClientParams",
			"conn_id":  conn.ID().String(),
		}).Error("Account type unset")
		return nil, err
	}

	params := &ClientParams{
		Service:    service,
		ServerFQDN: acct.Host,
		Properties: props,
		Callbacks:  Callbacks(acct, src),
	}

	if addr := conn.LocalAddr(); addr != nil {
		if params.LocalIPPort, err = IPPortString(addr); err != nil {
			return nil, fmt.Errorf("local address: %w", err)
		}
	}
	if addr := conn.RemoteAddr(); addr != nil {
		if params.RemoteIPPort, err = IPPortString(addr); err != nil {
			return nil, fmt.Errorf("remote address: %w", err)
		}
	}

	if acct.HasFlag(transport.AccountSSL) {
		params.ExternalSSF = conn.SSF()
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewClientParams",
		"conn_id":      conn.ID().String(),
		"service":      params.Service,
		"local":        params.LocalIPPort,
		"remote":       params.RemoteIPPort,
		"external_ssf": params.ExternalSSF,
	}).Debug("SASL client parameters prepared")

	return params, nil
}

// ServiceName maps an account type to its registered SASL service name.
func ServiceName(t transport.AccountType) (string, error) {
	switch t {
	case transport.AccountIMAP:
		return "imap", nil
	case transport.AccountPOP:
		return "pop-3", nil
	default:
		return "", ErrAccountType
	}
}

// IPPortString formats addr as "host;port", the form mechanism libraries
// expect for local and remote endpoints.
func IPPortString(addr net.Addr) (string, error) {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "", err
	}
	return host + ";" + port, nil
}
