package security

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubLookup(t *testing.T, ips []string, err error) {
	t.Helper()
	orig := lookupHost
	lookupHost = func(string) ([]string, error) { return ips, err }
	t.Cleanup(func() { lookupHost = orig })
}

func TestValidateSinkURL(t *testing.T) {
	stubLookup(t, []string{"93.184.216.34"}, nil)

	tests := []struct {
		name    string
		url     string
		private bool
		wantErr string
	}{
		{"public https", "https://hooks.example.com/alerts", false, ""},
		{"http rejected in production", "http://hooks.example.com/alerts", false, "https"},
		{"bad scheme", "ftp://hooks.example.com", false, "scheme"},
		{"no host", "https:///path", false, "host"},
		{"localhost", "https://localhost/hook", false, "not allowed"},
		{"loopback literal", "https://127.0.0.1/hook", false, "loopback"},
		{"private literal", "https://10.0.0.8/hook", false, "private"},
		{"link local", "https://169.254.169.254/latest", false, "link-local"},
		{"dev allows local receiver", "http://localhost:9000/hook", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSinkURL(tt.url, tt.private)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateSinkURL_ResolvesToPrivate(t *testing.T) {
	stubLookup(t, []string{"192.168.1.10"}, nil)
	err := ValidateSinkURL("https://internal.example.com/hook", false)
	assert.ErrorContains(t, err, "resolves to blocked address")
}

func TestValidateSinkURL_Unresolvable(t *testing.T) {
	stubLookup(t, nil, errors.New("no such host"))
	err := ValidateSinkURL("https://nope.example.com/hook", false)
	assert.ErrorContains(t, err, "cannot resolve")
}
