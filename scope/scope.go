package scope

import (
	"strings"

	"github.com/tokenetes/delegation-gateway/common"
)

const (
	Read     = "read"
	Purchase = "purchase"
)

// Required returns the permission a delegation must carry to perform method.
func Required(method common.HttpMethod) string {
	if common.HttpMethod(strings.ToUpper(string(method))).IsWrite() {
		return Purchase
	}

	return Read
}

// Permits reports whether granted allows an operation with the given method.
func Permits(granted []string, method common.HttpMethod) bool {
	required := Required(method)

	for _, permission := range granted {
		if permission == required {
			return true
		}
	}

	return false
}
