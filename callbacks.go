package sasl

import (
	"errors"
	"fmt"

	"github.com/opd-ai/sasl/transport"
	"github.com/sirupsen/logrus"
)

// CallbackID identifies what a mechanism asks the client for.
type CallbackID int

const (
	CallbackAuthName CallbackID = iota + 1
	CallbackUser
	CallbackPass
	CallbackGetRealm
)

// String returns the callback name.
func (id CallbackID) String() string {
	switch id {
	case CallbackAuthName:
		return "authname"
	case CallbackUser:
		return "user"
	case CallbackPass:
		return "pass"
	case CallbackGetRealm:
		return "getrealm"
	default:
		return fmt.Sprintf("callback(%d)", int(id))
	}
}

// Callback answers one kind of mechanism request. A nil Proc means the
// client declines to answer and the mechanism falls back to its default.
type Callback struct {
	ID   CallbackID
	Proc func() ([]byte, error)
}

// CredentialSource fills in missing account credentials, typically by
// prompting the user or consulting a credential store.
type CredentialSource interface {
	User(acct *transport.Account) error
	Pass(acct *transport.Account) error
}

// Callbacks returns the callbacks for acct. Authentication and
// authorization names are both answered with the account's user.
func Callbacks(acct *transport.Account, src CredentialSource) []Callback {
	return []Callback{
		{ID: CallbackAuthName, Proc: func() ([]byte, error) { return authName(acct, src, CallbackAuthName) }},
		{ID: CallbackUser, Proc: func() ([]byte, error) { return authName(acct, src, CallbackUser) }},
		{ID: CallbackPass, Proc: func() ([]byte, error) { return password(acct, src) }},
		{ID: CallbackGetRealm},
	}
}

func authName(acct *transport.Account, src CredentialSource, id CallbackID) ([]byte, error) {
	if acct == nil {
		return nil, errors.New("no account for callback")
	}

	logrus.WithFields(logrus.Fields{
		"function": "authName",
		"callback": id.String(),
		"account":  acct.String(),
	}).Debug("Getting user name")

	if acct.User == "" && src != nil {
		if err := src.User(acct); err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
	}
	if acct.User == "" {
		return nil, errors.New("no user name available")
	}
	return []byte(acct.User), nil
}

func password(acct *transport.Account, src CredentialSource) ([]byte, error) {
	if acct == nil {
		return nil, errors.New("no account for callback")
	}

	logrus.WithFields(logrus.Fields{
		"function": "password",
		"user":     acct.User,
		"account":  acct.String(),
	}).Debug("Getting password")

	if acct.Pass == "" && src != nil {
		if err := src.Pass(acct); err != nil {
			return nil, fmt.Errorf("get password: %w", err)
		}
	}
	return []byte(acct.Pass), nil
}

// Interaction is a mechanism request the client answers by asking the user.
type Interaction struct {
	ID     CallbackID
	Prompt string
	Result []byte
}

// Prompter asks the user for a single line of input.
type Prompter interface {
	Prompt(prompt string) (string, error)
}

// Interact fills in the Result of every interaction, in order. It stops at
// the first prompt that fails.
func Interact(interactions []*Interaction, p Prompter) error {
	for _, in := range interactions {
		logrus.WithFields(logrus.Fields{
			"function": "Interact",
			"callback": in.ID.String(),
		}).Debug("Filling in SASL interaction")

		resp, err := p.Prompt(fmt.Sprintf("%s: ", in.Prompt))
		if err != nil {
			return fmt.Errorf("interaction %s: %w", in.ID, err)
		}
		in.Result = []byte(resp)
	}
	return nil
}
