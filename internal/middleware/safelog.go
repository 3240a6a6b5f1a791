package middleware

import "strings"

// MaskToken маскирует bearer-токен в логах: видны только первые 6 символов.
func MaskToken(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 6 {
		return "****"
	}
	return s[:6] + "***"
}
