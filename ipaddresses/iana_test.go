package ipaddresses

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSpecialPurposeAddress(t *testing.T) {
	cases := []struct {
		ipAddr  string
		special bool
	}{
		{"132.239.180.101", false},
		{"8.8.8.8", false},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"127.0.0.1", true},
		{"10.255.255.255", true},
		{"100.127.255.255", true},
		{"100.128.0.0", false},
		{"255.255.255.255", true},
		{"203.0.113.9", true},
	}

	for _, tc := range cases {
		t.Run(tc.ipAddr, func(t *testing.T) {
			assert := assert.New(t)

			// Act
			special, err := IsSpecialPurposeAddress(tc.ipAddr)

			// Assert
			assert.Nil(err)
			assert.Equal(tc.special, special)
		})
	}
}

func TestIsSpecialPurposeAddressInvalid(t *testing.T) {
	assert := assert.New(t)

	// Act
	_, err := IsSpecialPurposeAddress("300.1.1.1")

	// Assert
	assert.True(errors.Is(err, ErrInvalidAddress))
}
