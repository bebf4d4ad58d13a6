package logging

import (
	"net/url"
	"regexp"
	"strings"
)

const mask = "****"

var (
	// apiKey=..., x_cg_demo_api_key=..., token=... in query strings
	queryKeyPattern = regexp.MustCompile(`(?i)((?:api_?key|x_cg_(?:demo|pro)_api_key|token|password)=)[^&\s"']+`)

	// X-Api-Key: ... header dumps
	headerKeyPattern = regexp.MustCompile(`(?i)(x-api-key:\s*)\S+`)

	// user:password@host in URLs
	userinfoPattern = regexp.MustCompile(`://([^:/\s]+):([^@\s]+)@`)
)

var sensitiveQueryKeys = map[string]bool{
	"apikey":            true,
	"api_key":           true,
	"x_cg_demo_api_key": true,
	"x_cg_pro_api_key":  true,
	"token":             true,
}

// SanitizeString masks credentials in free text.
// Each extra secret (e.g. the SMTP password) is replaced wherever it appears.
func SanitizeString(msg string, secrets ...string) string {
	for _, secret := range secrets {
		if secret != "" {
			msg = strings.ReplaceAll(msg, secret, mask)
		}
	}
	msg = queryKeyPattern.ReplaceAllString(msg, "${1}"+mask)
	msg = headerKeyPattern.ReplaceAllString(msg, "${1}"+mask)
	msg = userinfoPattern.ReplaceAllString(msg, "://$1:"+mask+"@")
	return msg
}

// SanitizeError returns the error message with credentials masked.
func SanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), secrets...)
}

// RedactURL masks credential-bearing query parameters and userinfo.
// Unparsable input falls back to SanitizeString.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return SanitizeString(raw)
	}

	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), mask)
		}
	}

	q := u.Query()
	changed := false
	for key := range q {
		if sensitiveQueryKeys[strings.ToLower(key)] {
			q.Set(key, mask)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}

	return u.String()
}
