package runner

import (
	"net/url"
	"strings"
)

// SanitizeDSN masks the password of a URL or MySQL-style DSN for display.
func SanitizeDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err == nil && u.Scheme != "" && u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			// Rebuilt by hand; url.URL.String would percent-encode the mask.
			masked := u.Scheme + "://" + u.User.Username() + ":****@" + u.Host + u.Path
			if u.RawQuery != "" {
				masked += "?" + u.RawQuery
			}
			return masked
		}
		return dsn
	}

	// user:pass@tcp(host)/db
	if at := strings.Index(dsn, "@"); at > 0 {
		userPass := dsn[:at]
		if colon := strings.Index(userPass, ":"); colon >= 0 {
			return userPass[:colon+1] + "****" + dsn[at:]
		}
	}
	return dsn
}
