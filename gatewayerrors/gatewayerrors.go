package gatewayerrors

import (
	"errors"
)

var ErrNotFound = errors.New("not found")

var ErrInvalidKeyID = errors.New("invalid key id")

var ErrStoreUnavailable = errors.New("store unavailable")

var ErrNoVerificationKey = errors.New("no delegation token verification key configured")

var ErrBackendUnavailable = errors.New("backend unavailable")
