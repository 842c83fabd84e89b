package delegationtoken

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/tokenetes/delegation-gateway/gatewayerrors"
	"github.com/tokenetes/delegation-gateway/verificationreasons"
)

const tokenSegments = 3

var DefaultAllowedAlgorithms = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodRS256.Alg(),
	jwt.SigningMethodES256.Alg(),
}

// KeySet resolves the public key registered under a key id.
type KeySet interface {
	LookupKey(keyID string) (interface{}, error)
}

// DecodeError carries the rejection reason for a token that could not be
// decoded into usable claims.
type DecodeError struct {
	Reason verificationreasons.Reason
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return e.Reason.String()
	}

	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the rejection reason from a Decode error.
func ReasonOf(err error) verificationreasons.Reason {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Reason
	}

	return verificationreasons.UnknownError
}

// Codec decodes delegation tokens and verifies their signatures. Tokens with
// a kid header are checked against the key set, tokens without one against
// the shared HMAC secret. Decode performs no I/O.
type Codec struct {
	hmacSecret []byte
	keySet     KeySet
	parser     *jwt.Parser
}

func NewCodec(hmacSecret []byte, keySet KeySet, allowedAlgorithms []string) (*Codec, error) {
	if len(hmacSecret) == 0 && keySet == nil {
		return nil, gatewayerrors.ErrNoVerificationKey
	}

	if len(allowedAlgorithms) == 0 {
		allowedAlgorithms = DefaultAllowedAlgorithms
	}

	return &Codec{
		hmacSecret: hmacSecret,
		keySet:     keySet,
		parser: &jwt.Parser{
			ValidMethods:         allowedAlgorithms,
			SkipClaimsValidation: true,
		},
	}, nil
}

func (c *Codec) Decode(token string) (*DelegationClaims, error) {
	if len(strings.Split(token, ".")) != tokenSegments {
		return nil, &DecodeError{Reason: verificationreasons.MalformedToken, Err: errors.New("token must have three segments")}
	}

	var claims wireClaims

	if _, err := c.parser.ParseWithClaims(token, &claims, c.keyFunc); err != nil {
		return nil, classifyParseError(err)
	}

	if missing := claims.missingClaims(); len(missing) > 0 {
		return nil, &DecodeError{
			Reason: verificationreasons.MissingClaims,
			Err:    fmt.Errorf("missing %s", strings.Join(missing, ", ")),
		}
	}

	return claims.toDelegationClaims(), nil
}

func (c *Codec) keyFunc(token *jwt.Token) (interface{}, error) {
	keyID, _ := token.Header["kid"].(string)

	if keyID != "" {
		if c.keySet == nil {
			return nil, fmt.Errorf("kid %q presented but no trust bundle configured: %w", keyID, gatewayerrors.ErrInvalidKeyID)
		}

		return c.keySet.LookupKey(keyID)
	}

	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("%s token without kid", token.Method.Alg())
	}

	if len(c.hmacSecret) == 0 {
		return nil, gatewayerrors.ErrNoVerificationKey
	}

	return c.hmacSecret, nil
}

func classifyParseError(err error) error {
	var validationErr *jwt.ValidationError
	if !errors.As(err, &validationErr) {
		return &DecodeError{Reason: verificationreasons.UnknownError, Err: err}
	}

	switch {
	case validationErr.Errors&jwt.ValidationErrorMalformed != 0:
		return &DecodeError{Reason: verificationreasons.MalformedToken, Err: err}
	case validationErr.Errors&(jwt.ValidationErrorUnverifiable|jwt.ValidationErrorSignatureInvalid) != 0:
		return &DecodeError{Reason: verificationreasons.InvalidSignature, Err: err}
	default:
		return &DecodeError{Reason: verificationreasons.UnknownError, Err: err}
	}
}
