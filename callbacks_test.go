package sasl

import (
	"errors"
	"testing"

	"github.com/opd-ai/sasl/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCredentials fills credentials the way an interactive prompt would.
type stubCredentials struct {
	user      string
	pass      string
	err       error
	userCalls int
	passCalls int
}

func (s *stubCredentials) User(acct *transport.Account) error {
	s.userCalls++
	if s.err != nil {
		return s.err
	}
	acct.User = s.user
	return nil
}

func (s *stubCredentials) Pass(acct *transport.Account) error {
	s.passCalls++
	if s.err != nil {
		return s.err
	}
	acct.Pass = s.pass
	return nil
}

// stubPrompter answers prompts from a fixed list.
type stubPrompter struct {
	answers []string
	prompts []string
	err     error
}

func (s *stubPrompter) Prompt(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func callbackByID(t *testing.T, cbs []Callback, id CallbackID) Callback {
	t.Helper()
	for _, cb := range cbs {
		if cb.ID == id {
			return cb
		}
	}
	t.Fatalf("callback %s not registered", id)
	return Callback{}
}

func TestCallbacksUseAccountCredentials(t *testing.T) {
	acct := &transport.Account{Host: "imap.example.com", Port: 143, User: "alice", Pass: "s3cret"}
	src := &stubCredentials{}
	cbs := Callbacks(acct, src)

	ids := make([]CallbackID, 0, len(cbs))
	for _, cb := range cbs {
		ids = append(ids, cb.ID)
	}
	assert.Equal(t, []CallbackID{CallbackAuthName, CallbackUser, CallbackPass, CallbackGetRealm}, ids)
	assert.Nil(t, callbackByID(t, cbs, CallbackGetRealm).Proc)

	for _, id := range []CallbackID{CallbackAuthName, CallbackUser} {
		got, err := callbackByID(t, cbs, id).Proc()
		require.NoError(t, err)
		assert.Equal(t, "alice", string(got))
	}

	pass, err := callbackByID(t, cbs, CallbackPass).Proc()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", string(pass))
	assert.Zero(t, src.userCalls)
	assert.Zero(t, src.passCalls)
}

func TestCallbacksAskCredentialSource(t *testing.T) {
	acct := &transport.Account{Host: "imap.example.com", Port: 143}
	src := &stubCredentials{user: "bob", pass: "hunter2"}
	cbs := Callbacks(acct, src)

	user, err := callbackByID(t, cbs, CallbackUser).Proc()
	require.NoError(t, err)
	assert.Equal(t, "bob", string(user))

	pass, err := callbackByID(t, cbs, CallbackPass).Proc()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(pass))

	_, err = callbackByID(t, cbs, CallbackAuthName).Proc()
	require.NoError(t, err)
	assert.Equal(t, 1, src.userCalls, "user is asked for only once")
	assert.Equal(t, 1, src.passCalls)
}

func TestCallbacksErrors(t *testing.T) {
	srcErr := errors.New("prompt cancelled")
	acct := &transport.Account{Host: "imap.example.com"}
	cbs := Callbacks(acct, &stubCredentials{err: srcErr})

	_, err := callbackByID(t, cbs, CallbackAuthName).Proc()
	assert.ErrorIs(t, err, srcErr)
	_, err = callbackByID(t, cbs, CallbackPass).Proc()
	assert.ErrorIs(t, err, srcErr)

	_, err = callbackByID(t, Callbacks(acct, nil), CallbackUser).Proc()
	assert.Error(t, err)

	_, err = callbackByID(t, Callbacks(nil, nil), CallbackPass).Proc()
	assert.Error(t, err)
}

func TestInteract(t *testing.T) {
	interactions := []*Interaction{
		{ID: CallbackUser, Prompt: "Username"},
		{ID: CallbackGetRealm, Prompt: "Realm"},
	}
	p := &stubPrompter{answers: []string{"carol", "EXAMPLE.COM"}}

	require.NoError(t, Interact(interactions, p))
	assert.Equal(t, []string{"Username: ", "Realm: "}, p.prompts)
	assert.Equal(t, "carol", string(interactions[0].Result))
	assert.Equal(t, "EXAMPLE.COM", string(interactions[1].Result))
}

func TestInteractFailure(t *testing.T) {
	promptErr := errors.New("no terminal")
	interactions := []*Interaction{{ID: CallbackUser, Prompt: "Username"}, {ID: CallbackPass, Prompt: "Password"}}
	p := &stubPrompter{err: promptErr}

	err := Interact(interactions, p)
	assert.ErrorIs(t, err, promptErr)
	assert.Len(t, p.prompts, 1)
	assert.Nil(t, interactions[0].Result)
}

func TestCallbackIDString(t *testing.T) {
	assert.Equal(t, "authname", CallbackAuthName.String())
	assert.Equal(t, "pass", CallbackPass.String())
	assert.Equal(t, "callback(42)", CallbackID(42).String())
}
