package transport

import "fmt"

// AccountType identifies the mail protocol an account talks.
type AccountType uint8

const (
	// AccountUnset is the zero value; no service can be derived from it.
	AccountUnset AccountType = iota
	// AccountIMAP is an IMAP account.
	AccountIMAP
	// AccountPOP is a POP3 account.
	AccountPOP
)

// String returns a human readable account type.
func (t AccountType) String() string {
	switch t {
	case AccountIMAP:
		return "imap"
	case AccountPOP:
		return "pop"
	default:
		return "unset"
	}
}

// AccountFlags carries per-account connection options.
type AccountFlags uint8

const (
	// AccountSSL marks accounts whose transport runs over TLS.
	AccountSSL AccountFlags = 1 << iota
)

// Account describes the remote login a connection belongs to.
// User and Pass may be empty until a credential source fills them in.
type Account struct {
	Type  AccountType
	Host  string
	Port  uint16
	User  string
	Pass  string
	Flags AccountFlags
}

// HasFlag reports whether all bits of f are set on the account.
func (a *Account) HasFlag(f AccountFlags) bool {
	return a.Flags&f == f
}

// String returns host:port, never the credentials.
func (a *Account) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}
