package netutil

import "net/url"

// StripCredentials drops any user:secret@ part from a URL so it can be
// logged. Unparseable input is returned as-is; this is a logging helper,
// not a validator.
func StripCredentials(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.User = nil
	return parsed.String()
}
