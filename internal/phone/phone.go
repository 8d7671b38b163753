package phone

import "strings"

// CountryPrefix is the international prefix every canonical number carries.
const CountryPrefix = "972"

// ChatSuffix is the domain suffix the messaging gateway appends to a
// normalized phone number to form a chat identifier.
const ChatSuffix = "@c.us"

// Normalize canonicalizes a raw phone number to a digits-only string with the
// international prefix. It never fails: empty or digit-less input yields "".
// The result is the join key between customer records and chat identifiers.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, CountryPrefix) {
		return digits
	}
	if strings.HasPrefix(digits, "0") {
		return CountryPrefix + digits[1:]
	}
	return CountryPrefix + digits
}

// ToChatID converts a phone number or chat identifier into a fully qualified
// chat identifier. Inputs already containing a domain separator pass through
// unchanged.
func ToChatID(id string) string {
	if strings.Contains(id, "@") {
		return id
	}
	return Normalize(id) + ChatSuffix
}

// FromChatID strips the domain suffix and the leading country prefix from a
// chat identifier, yielding the local comparable form of the number.
func FromChatID(chatID string) string {
	n := chatID
	if i := strings.Index(n, "@"); i >= 0 {
		n = n[:i]
	}
	return strings.TrimPrefix(n, CountryPrefix)
}

// Same reports whether two phone numbers (or chat identifiers) address the
// same subscriber once normalized.
func Same(a, b string) bool {
	na := Normalize(FromChatID(a))
	nb := Normalize(FromChatID(b))
	return na != "" && na == nb
}
