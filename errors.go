package imgcache

import "errors"

var (
	ErrSourceNotFound = errors.New("imgcache: source file not found")
	ErrNoRemote       = errors.New("imgcache: no remote configured")
	ErrUnknownHash    = errors.New("imgcache: unknown checksum algorithm")
)
