package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// HeaderConfirmToken carries the hard-delete confirmation token.
const HeaderConfirmToken = "X-Confirm-Token"

var (
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// secretParamRE matches query parameters whose names suggest a credential.
	secretParamRE = regexp.MustCompile(`(?i)((?:^|&)[a-z0-9_\-]*(?:token|secret|password|api_?key)[a-z0-9_\-]*=)[^&]*`)
	// bearerRE matches JWT-looking values left in free-form headers.
	bearerRE = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`)
)

// redactor scrubs request metadata before it reaches the access log.
// Bodies are never logged.
type redactor struct {
	mask map[string]struct{}
}

func newRedactor(extra []string) *redactor {
	mask := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	mask[strings.ToLower(HeaderConfirmToken)] = struct{}{}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}
	return &redactor{mask: mask}
}

// value redacts emails and JWTs inside a free-form string.
func (r *redactor) value(s string) string {
	if s == "" {
		return s
	}
	s = bearerRE.ReplaceAllString(s, "[REDACTED:jwt]")
	return emailRE.ReplaceAllString(s, "[REDACTED:email]")
}

// query masks credential-like parameters and scrubs the rest.
func (r *redactor) query(raw string) string {
	if raw == "" {
		return raw
	}
	return r.value(secretParamRE.ReplaceAllString(raw, "${1}[REDACTED]"))
}

// headers flattens h with masked and scrubbed values.
func (r *redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.mask[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.value(strings.Join(vv, ", "))
	}
	return out
}
