package zoho

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAccountsURL(t *testing.T) {
	const def = "https://accounts.zoho.com"

	tests := []struct {
		name           string
		accountsServer string
		location       string
		want           string
	}{
		{"accounts-server wins", "https://accounts.zoho.in", "eu", "https://accounts.zoho.in"},
		{"accounts-server urldecoded", "https%3A%2F%2Faccounts.zoho.in", "", "https://accounts.zoho.in"},
		{"location in", "", "in", "https://accounts.zoho.in"},
		{"location eu", "", "eu", "https://accounts.zoho.eu"},
		{"location com", "", "com", "https://accounts.zoho.com"},
		{"location com.au", "", "com.au", "https://accounts.zoho.com.au"},
		{"location com.cn", "", "com.cn", "https://accounts.zoho.com.cn"},
		{"unknown location falls back", "", "xx", def},
		{"nothing falls back", "", "", def},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAccountsURL(tt.accountsServer, tt.location, def))
		})
	}
}

func TestAPIURLForAccountsURL(t *testing.T) {
	tests := []struct {
		accountsURL string
		want        string
	}{
		{"https://accounts.zoho.in", "https://www.zohoapis.in"},
		{"https://accounts.zoho.eu", "https://www.zohoapis.eu"},
		{"https://accounts.zoho.com.au", "https://www.zohoapis.com.au"},
		{"https://accounts.zoho.com.cn", "https://www.zohoapis.com.cn"},
		{"https://accounts.zoho.com", "https://www.zohoapis.com"},
		{"https://somewhere.else", "https://www.zohoapis.com"},
	}

	for _, tt := range tests {
		t.Run(tt.accountsURL, func(t *testing.T) {
			assert.Equal(t, tt.want, APIURLForAccountsURL(tt.accountsURL))
		})
	}
}

func TestAccountsURLForAPIDomain(t *testing.T) {
	const def = "https://accounts.zoho.eu"

	tests := []struct {
		apiDomain string
		want      string
	}{
		{"https://www.zohoapis.in", "https://accounts.zoho.in"},
		{"https://www.zohoapis.eu", "https://accounts.zoho.eu"},
		{"https://www.zohoapis.com.au", "https://accounts.zoho.com.au"},
		{"https://www.zohoapis.com.cn", "https://accounts.zoho.com.cn"},
		{"https://www.zohoapis.com", "https://accounts.zoho.com"},
		{"https://api.unknown.example", "https://accounts.zoho.com"},
	}

	for _, tt := range tests {
		t.Run(tt.apiDomain, func(t *testing.T) {
			assert.Equal(t, tt.want, AccountsURLForAPIDomain(tt.apiDomain, def))
		})
	}

	t.Run("empty api domain uses default", func(t *testing.T) {
		assert.Equal(t, def, AccountsURLForAPIDomain("", def))
	})
}
