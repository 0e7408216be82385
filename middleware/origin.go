package middleware

import "regexp"

// LocalOrigin matches browser origins served from the camera host itself.
var LocalOrigin = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)

// IsLocalOrigin reports whether origin may make credentialed requests.
func IsLocalOrigin(origin string) bool {
	return LocalOrigin.MatchString(origin)
}
