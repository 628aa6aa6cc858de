package utils

// MaskToken keeps the first 10 characters of a credential for display.
func MaskToken(token string) string {
	if len(token) > 10 {
		return token[:10] + "..."
	}
	return "***"
}
