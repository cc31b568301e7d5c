package totp

import (
	"net/url"
	"strconv"
	"strings"
)

// Params describes one account for an otpauth:// URI
type Params struct {
	Service string
	Secret  string
	Digits  int
	Period  int
}

// URI builds otpauth://totp/<name>?secret=<b32>&issuer=<name>&digits=<n>&period=<p>.
// The secret is normalized and written without padding, the form most
// authenticator apps expect.
func URI(p Params) string {
	secret := strings.TrimRight(NormalizeSecret(p.Secret), "=")

	var b strings.Builder
	b.WriteString("otpauth://totp/")
	b.WriteString(url.PathEscape(p.Service))
	b.WriteString("?secret=")
	b.WriteString(url.QueryEscape(secret))
	b.WriteString("&issuer=")
	b.WriteString(url.QueryEscape(p.Service))
	b.WriteString("&digits=")
	b.WriteString(strconv.Itoa(p.Digits))
	b.WriteString("&period=")
	b.WriteString(strconv.Itoa(p.Period))
	return b.String()
}
