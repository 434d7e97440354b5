package utils

import (
	"net/url"
	"regexp"
)

var dsnPasswordRe = regexp.MustCompile(`(password\s*=\s*)('[^']*'|\S+)`)

// MaskDSN hides the password of a keyword/value or URL style connection string
// so it can be logged.
func MaskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.User != nil {
		return u.Redacted()
	}
	return dsnPasswordRe.ReplaceAllString(dsn, "${1}*****")
}
