// Package util holds small cross-cutting helpers.
package util

import "strings"

// MaskEmail reduce un email a una vista parcial apta para logs y pantallas
// de consentimiento: "m…@e….org".
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexByte(s, '@')
	if i <= 0 {
		if s == "" {
			return ""
		}
		if len(s) <= 3 {
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	user, dom := s[:i], s[i+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	dparts := strings.Split(dom, ".")
	if len(dparts) > 0 && len(dparts[0]) > 1 {
		dparts[0] = dparts[0][:1] + "…"
	}
	return user + "@" + strings.Join(dparts, ".")
}

// MaskPhone conserva el prefijo internacional y los últimos dos dígitos.
func MaskPhone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "••••"
	}
	keepHead := 0
	if strings.HasPrefix(s, "+") && len(s) > 5 {
		keepHead = 3
	}
	return s[:keepHead] + strings.Repeat("•", len(s)-keepHead-2) + s[len(s)-2:]
}

// MaskNIP conserva los primeros cuatro caracteres del identificador nacional.
func MaskNIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "••••"
	}
	return s[:4] + strings.Repeat("•", len(s)-4)
}
