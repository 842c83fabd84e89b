package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tokenetes/delegation-gateway/common"
)

func TestPermits(t *testing.T) {
	tests := []struct {
		name    string
		granted []string
		method  common.HttpMethod
		want    bool
	}{
		{"read allows get", []string{"read"}, common.Get, true},
		{"read denies post", []string{"read"}, common.Post, false},
		{"purchase allows post", []string{"read", "purchase"}, common.Post, true},
		{"purchase alone allows post", []string{"purchase"}, common.Post, true},
		{"purchase alone denies get", []string{"purchase"}, common.Get, false},
		{"write-like methods need purchase", []string{"read"}, common.Delete, false},
		{"put with purchase", []string{"purchase"}, common.Put, true},
		{"patch with read", []string{"read"}, common.Patch, false},
		{"lowercase method", []string{"read"}, common.HttpMethod("post"), false},
		{"empty scope", nil, common.Get, false},
		{"head is read-like", []string{"read"}, common.Head, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Permits(tt.granted, tt.method))
		})
	}
}

func TestRequired(t *testing.T) {
	assert.Equal(t, Purchase, Required(common.Post))
	assert.Equal(t, Read, Required(common.Get))
	assert.Equal(t, Read, Required(common.Options))
}
