package token

import "errors"

var (
	// ErrFormat means no recognizable credential segment could be located.
	// User-correctable; callers must not persist the account.
	ErrFormat = errors.New("credential format not recognized")

	// ErrDecode means a credential segment was present but its payload was
	// not valid base64url/JSON.
	ErrDecode = errors.New("credential payload decode failed")
)
