// Package zoho implements the OAuth token lifecycle and CRM API client for
// Zoho's multi-region cloud.
package zoho

import (
	"net/url"
	"strings"
)

// locationAccounts maps the `location` callback parameter to the accounts
// host for that data center.
var locationAccounts = map[string]string{
	"in":     "https://accounts.zoho.in",
	"eu":     "https://accounts.zoho.eu",
	"com":    "https://accounts.zoho.com",
	"com.au": "https://accounts.zoho.com.au",
	"com.cn": "https://accounts.zoho.com.cn",
}

// ResolveAccountsURL picks the accounts host for the data center that issued
// an authorization code. The accounts-server callback parameter wins, the
// location parameter is the fallback, and the configured default covers
// callbacks that carry neither.
func ResolveAccountsURL(accountsServer, location, def string) string {
	if accountsServer != "" {
		if decoded, err := url.QueryUnescape(accountsServer); err == nil {
			return decoded
		}
		return accountsServer
	}
	if mapped, ok := locationAccounts[location]; ok {
		return mapped
	}
	return def
}

// APIURLForAccountsURL derives the CRM API base URL from an accounts host.
// Unknown hosts fall back to the US data center.
func APIURLForAccountsURL(accountsURL string) string {
	switch {
	case strings.Contains(accountsURL, "zoho.in"):
		return "https://www.zohoapis.in"
	case strings.Contains(accountsURL, "zoho.eu"):
		return "https://www.zohoapis.eu"
	case strings.Contains(accountsURL, "zoho.com.au"):
		return "https://www.zohoapis.com.au"
	case strings.Contains(accountsURL, "zoho.com.cn"):
		return "https://www.zohoapis.com.cn"
	default:
		return "https://www.zohoapis.com"
	}
}

// AccountsURLForAPIDomain derives the accounts host from a stored API domain,
// so refreshes go to the data center that issued the tokens. An empty API
// domain resolves to the configured default.
func AccountsURLForAPIDomain(apiDomain, def string) string {
	if apiDomain == "" {
		return def
	}
	switch {
	case strings.Contains(apiDomain, "zohoapis.in"):
		return "https://accounts.zoho.in"
	case strings.Contains(apiDomain, "zohoapis.eu"):
		return "https://accounts.zoho.eu"
	case strings.Contains(apiDomain, "zohoapis.com.au"):
		return "https://accounts.zoho.com.au"
	case strings.Contains(apiDomain, "zohoapis.com.cn"):
		return "https://accounts.zoho.com.cn"
	default:
		return "https://accounts.zoho.com"
	}
}
