package pairing

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Payload is a decoded scan or paste result, consumed identically to manual entry.
type Payload struct {
	Code   string `json:"code"`
	APIURL string `json:"apiUrl"`
}

var (
	codePattern = regexp.MustCompile(`(?i)code=([A-Za-z0-9]{5,})`)
	urlPattern  = regexp.MustCompile(`(?i)apiUrl=([^&\s]+)`)
	nonAlnum    = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// FormatCode strips everything but letters and digits and upper-cases the rest,
// matching how the desktop pairing screen displays codes.
func FormatCode(value string) string {
	return strings.ToUpper(nonAlnum.ReplaceAllString(value, ""))
}

// ParsePayload decodes a raw QR/paste payload into a [Payload].
//
// A strict JSON object with string `code` and `apiUrl` fields wins; otherwise
// the two tokens are extracted pattern-wise from anywhere in the string, with
// the apiUrl capture URL-decoded. Returns ok=false for anything partial or
// malformed; callers must not attempt a connect without both fields.
func ParsePayload(raw string) (*Payload, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}

	var decoded Payload
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		if decoded.Code != "" && decoded.APIURL != "" {
			return &decoded, true
		}
	}

	codeMatch := codePattern.FindStringSubmatch(trimmed)
	urlMatch := urlPattern.FindStringSubmatch(trimmed)
	if codeMatch == nil || urlMatch == nil {
		return nil, false
	}

	apiURL, err := url.QueryUnescape(urlMatch[1])
	if err != nil {
		return nil, false
	}

	return &Payload{Code: codeMatch[1], APIURL: apiURL}, true
}

// String renders the payload in its query-string form, the same shape the QR
// codes encode.
func (p *Payload) String() string {
	return fmt.Sprintf("code=%s&apiUrl=%s", p.Code, url.QueryEscape(p.APIURL))
}
