package respond

import (
	"regexp"
)

var (
	// user:password@ inside a DSN
	dsnPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
	// password=... in key/value connection strings
	kvPasswordPattern = regexp.MustCompile(`(?i)(password=)(\S+)`)
	// token-like query parameters of fetched URLs
	queryTokenPattern = regexp.MustCompile(`(?i)([?&](?:token|key|api_key|apikey|sig|signature)=)[^&\s"]+`)
)

// SanitizeError returns the error message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = dsnPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	msg = kvPasswordPattern.ReplaceAllString(msg, "${1}****")
	msg = queryTokenPattern.ReplaceAllString(msg, "${1}****")
	return msg
}
