package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "ipv4", input: "192.168.1.47", want: "192.168.1.0"},
		{name: "ipv4 localhost", input: "127.0.0.1", want: "127.0.0.0"},
		{name: "ipv6 full", input: "2001:db8:85a3:0000:0000:8a2e:0370:7334", want: "2001:0db8:85a3::"},
		{name: "ipv6 compressed", input: "2001:db8:85a3::8a2e:370:7334", want: "2001:0db8:85a3::"},
		{name: "ipv6 loopback", input: "::1", want: "0000:0000:0000::"},
		{name: "empty", input: "", want: "unknown"},
		{name: "unknown", input: "unknown", want: "unknown"},
		{name: "garbage", input: "not-an-ip", want: "invalid"},
		{name: "host with port", input: "192.168.1.1:8080", want: "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.input))
		})
	}
}

func TestAnonymizeIP_GroupsSameSubnet(t *testing.T) {
	// every host in the same /24 anonymizes identically
	for _, ip := range []string{"192.168.1.1", "192.168.1.100", "192.168.1.255"} {
		assert.Equal(t, "192.168.1.0", AnonymizeIP(ip))
	}
	assert.NotEqual(t, AnonymizeIP("192.168.1.47"), AnonymizeIP("192.168.2.47"))
}

func TestAnonymizeAddr(t *testing.T) {
	assert.Equal(t, "10.1.2.0", AnonymizeAddr("10.1.2.3:52114"))
	assert.Equal(t, "10.1.2.0", AnonymizeAddr("10.1.2.3"))
	assert.Equal(t, "2001:0db8:85a3::", AnonymizeAddr("[2001:db8:85a3::1]:443"))
}
