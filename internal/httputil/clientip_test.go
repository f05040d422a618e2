package httputil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPRemoteAddr(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.168.1.1:12345", "192.168.1.1"},
		{"[::1]:12345", "::1"},
		{"192.168.1.1", "192.168.1.1"},
	}
	for _, tt := range tests {
		r := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
		assert.Equal(t, tt.want, ClientIP(r, false), "remote %q", tt.remoteAddr)
	}
}

func TestClientIPTrustProxy(t *testing.T) {
	tests := []struct {
		name string
		xff  string
		xri  string
		want string
	}{
		{"xff single", "1.2.3.4", "", "1.2.3.4"},
		{"xff chain takes leftmost", " 1.2.3.4 , 10.0.0.2, 10.0.0.3", "", "1.2.3.4"},
		{"xff ipv6", "2001:db8::1", "", "2001:db8::1"},
		{"xff mapped ipv4", "::ffff:1.2.3.4", "", "1.2.3.4"},
		{"xff garbage falls to x-real-ip", "not-an-ip", "5.6.7.8", "5.6.7.8"},
		{"x-real-ip only", "", "5.6.7.8", "5.6.7.8"},
		{"both garbage falls to remote", "nope", "nope", "10.0.0.1"},
		{"no headers", "", "", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: "10.0.0.1:1234", Header: http.Header{}}
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, ClientIP(r, true))
		})
	}
}

func TestClientIPIgnoresHeadersWithoutTrust(t *testing.T) {
	r := &http.Request{RemoteAddr: "10.0.0.1:1234", Header: http.Header{}}
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	r.Header.Set("X-Real-IP", "5.6.7.8")
	assert.Equal(t, "10.0.0.1", ClientIP(r, false))
}
