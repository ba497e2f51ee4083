package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		addr    string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"::ffff:127.0.0.1", true},
		{"162.159.135.232", false}, // discord.com
		{"2606:4700::6810:84e5", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.blocked, IsBlocked(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestGuardedClient_RefusesLoopback(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	client := NewGuardedClient(3)
	resp, err := client.Get(srv.URL)
	if resp != nil {
		resp.Body.Close()
	}

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlockedAddress), "got %v", err)
	assert.Zero(t, hits)
}

func TestGuardedClient_RedirectLimit(t *testing.T) {
	client := NewGuardedClient(2)
	via := []*http.Request{{}, {}}
	err := client.CheckRedirect(&http.Request{}, via)
	assert.ErrorIs(t, err, ErrTooManyRedirects)

	assert.NoError(t, client.CheckRedirect(&http.Request{}, via[:1]))
}

func TestControl(t *testing.T) {
	assert.ErrorIs(t, control("tcp4", "127.0.0.1:443", nil), ErrBlockedAddress)
	assert.ErrorIs(t, control("tcp6", "[::1]:443", nil), ErrBlockedAddress)
	assert.ErrorIs(t, control("tcp", "not-an-address", nil), ErrBlockedAddress)
	assert.NoError(t, control("tcp4", "162.159.135.232:443", nil))
}

func TestCheckWebhookURL(t *testing.T) {
	assert.NoError(t, CheckWebhookURL("https://discord.com/api/webhooks/1/abc"))
	assert.ErrorIs(t, CheckWebhookURL("http://discord.com/api/webhooks/1/abc"), ErrInsecureURL)
	assert.ErrorIs(t, CheckWebhookURL("https://169.254.169.254/latest"), ErrBlockedAddress)
	assert.Error(t, CheckWebhookURL("https:///nohost"))
	assert.Error(t, CheckWebhookURL("://bad"))
}
