package verificationreasons

// Reason is the kind of a verification rejection. The same HTTP status is
// returned for every reason; only the message differs.
type Reason string

const (
	MalformedToken     Reason = "MalformedToken"
	InvalidSignature   Reason = "InvalidSignature"
	MissingClaims      Reason = "MissingClaims"
	Expired            Reason = "Expired"
	Revoked            Reason = "Revoked"
	InsufficientScope  Reason = "InsufficientScope"
	NoSession          Reason = "NoSession"
	InvalidSession     Reason = "InvalidSession"
	BackendUnreachable Reason = "BackendUnreachable"
	UnknownError       Reason = "UnknownError"
)

var messages = map[Reason]string{
	MalformedToken:     "delegation token is malformed",
	InvalidSignature:   "delegation token signature could not be verified",
	MissingClaims:      "delegation token is missing required claims",
	Expired:            "delegation token has expired",
	Revoked:            "delegation token has been revoked",
	InsufficientScope:  "delegation scope does not permit this operation",
	NoSession:          "no session credential presented",
	InvalidSession:     "session is invalid or expired",
	BackendUnreachable: "authorization backend unavailable",
	UnknownError:       "agent authorization could not be verified",
}

// Message returns a non-sensitive description suitable for response bodies.
func (r Reason) Message() string {
	if msg, ok := messages[r]; ok {
		return msg
	}

	return messages[UnknownError]
}

func (r Reason) String() string {
	return string(r)
}
