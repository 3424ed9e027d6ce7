package smtp

import (
	"strconv"
	"strings"

	"github.com/arkime-go/sesscore/session"
)

// headerKind selects how a recognized header's value is interpreted.
type headerKind int

const (
	headerAddress headerKind = iota
	headerMessageID
	headerContentType
	headerContentDisposition
	headerContentTransferEncoding
	headerIPList
)

type headerRule struct {
	kind    headerKind
	fieldID session.FieldID
}

// headerTable is the configured header-field map: lowercased header
// name -> how to interpret its value. Received and X-Forwarded-For
// are the configured SMTP-IP headers.
var headerTable = map[string]headerRule{
	"cc":                        {headerAddress, FieldEmailCC},
	"to":                        {headerAddress, FieldEmailTo},
	"from":                      {headerAddress, FieldEmailFrom},
	"message-id":                {headerMessageID, FieldEmailMessageID},
	"content-type":              {headerContentType, FieldEmailContentType},
	"content-disposition":       {headerContentDisposition, 0},
	"content-transfer-encoding": {headerContentTransferEncoding, 0},
	"received":                  {headerIPList, FieldEmailIP},
	"x-forwarded-for":           {headerIPList, FieldEmailIP},
}

// extractAddress mirrors the MAIL FROM/RCPT TO address extraction:
// prefer the content between angle brackets, else the trimmed
// remainder, lowercased.
func extractAddress(value string) string {
	value = strings.TrimSpace(value)
	if lt := strings.IndexByte(value, '<'); lt >= 0 {
		if gt := strings.IndexByte(value[lt+1:], '>'); gt >= 0 {
			return strings.ToLower(value[lt+1 : lt+1+gt])
		}
	}
	return strings.ToLower(value)
}

// extractBoundary pulls `boundary=VALUE` or `boundary="VALUE"` out of
// a Content-Type header value.
func extractBoundary(value string) (string, bool) {
	lower := strings.ToLower(value)
	idx := strings.Index(lower, "boundary=")
	if idx < 0 {
		return "", false
	}
	rest := value[idx+len("boundary="):]
	if len(rest) > 0 && rest[0] == '"' {
		rest = rest[1:]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end], true
		}
		return rest, true
	}
	if end := strings.IndexAny(rest, "; \t\r\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

// extractFilename pulls `filename=VALUE` out of a Content-Disposition
// header value.
func extractFilename(value string) (string, bool) {
	lower := strings.ToLower(value)
	idx := strings.Index(lower, "filename=")
	if idx < 0 {
		return "", false
	}
	rest := value[idx+len("filename="):]
	if len(rest) > 0 && rest[0] == '"' {
		rest = rest[1:]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end], true
		}
		return rest, true
	}
	if end := strings.IndexAny(rest, "; \t\r\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

// isValidIPv4 reports whether s parses as four dotted octets, the
// same check `inet_addr` performs before a Received/X-Forwarded-For
// entry is accepted.
func isValidIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// extractBracketedIP pulls the first `[a.b.c.d]` substring out of a
// Received-style header value.
func extractBracketedIP(value string) (string, bool) {
	start := strings.IndexByte(value, '[')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(value[start:], ']')
	if end < 0 {
		return "", false
	}
	return value[start+1 : start+end], true
}

func processHeaderLine(s session.Session, dir *dirState, name, value string) {
	rule, ok := headerTable[strings.ToLower(name)]
	if !ok {
		return
	}
	switch rule.kind {
	case headerAddress:
		s.AddString(rule.fieldID, extractAddress(value), true)
	case headerMessageID:
		s.AddString(rule.fieldID, strings.Trim(strings.TrimSpace(value), "<>"), true)
	case headerContentType:
		dir.contentType = value
		s.AddString(rule.fieldID, strings.TrimSpace(value), true)
		if b, ok := extractBoundary(value); ok {
			dir.pushBoundary(b)
		}
	case headerContentDisposition:
		if fn, ok := extractFilename(value); ok {
			dir.currentFilename = fn
			s.AddString(FieldEmailFilename, fn, true)
		}
	case headerContentTransferEncoding:
		if strings.Contains(strings.ToLower(value), "base64") {
			dir.b64.active = true
		}
	case headerIPList:
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if ip, ok := extractBracketedIP(item); ok {
				item = ip
			}
			if isValidIPv4(item) {
				s.AddString(rule.fieldID, item, true)
			} else if item != "" {
				s.AddTag(TagBadXFF)
			}
		}
	}
}
