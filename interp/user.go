package interp

import "os/user"

// userHomeDir resolves "~name" to that user's home directory, grounded on
// the teacher's tilde expansion (expand.go in the example pack hard-codes
// os/user the same way).
func userHomeDir(name string) (string, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}
