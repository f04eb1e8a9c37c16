package driver

import (
	"fmt"
	"net/http"
	"unicode/utf8"
)

// maxErrorMessage bounds the provider text echoed by Error; gateways can answer
// with whole HTML pages.
const maxErrorMessage = 300

// ProviderError is a failed provider call: a non-2xx status (StatusCode set), a
// transport failure (Err set) or an undecodable body. RawResponse holds the body
// bytes as received and never contains credentials.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RawResponse []byte
	Err         error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	msg := e.Message
	if len(msg) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "…"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, msg)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Unauthorized reports a rejected credential.
func (e *ProviderError) Unauthorized() bool {
	return e != nil && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// RateLimited reports a 429 answer.
func (e *ProviderError) RateLimited() bool {
	return e != nil && e.StatusCode == http.StatusTooManyRequests
}

// ServerSide reports a 5xx answer.
func (e *ProviderError) ServerSide() bool {
	return e != nil && e.StatusCode >= 500 && e.StatusCode <= 599
}
