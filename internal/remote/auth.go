package remote

// Authenticator provides credentials for remote registries.
type Authenticator interface {
	// Authenticate returns credentials for the given registry. Empty
	// credentials fall back to the system keychain.
	Authenticate(registry string) (username, password string, err error)
}
