package broadcast

import "strings"

// Recognized placeholder tokens. Matching is an exact literal scan, not
// a template language; anything else in the message passes through
// untouched.
const (
	tokenUsername  = "{{username}}"
	tokenFirstName = "{{firstname}}"
	tokenLastName  = "{{lastname}}"
)

// NeedsPersonalization reports whether the template contains at least
// one recognized placeholder. The decision is made once per broadcast;
// without placeholders every recipient gets the same rendered body.
func NeedsPersonalization(template string) bool {
	return strings.Contains(template, tokenUsername) ||
		strings.Contains(template, tokenFirstName) ||
		strings.Contains(template, tokenLastName)
}

// Render substitutes every occurrence of each recognized placeholder
// with the recipient's field, empty string when the field is absent.
func Render(template string, r Recipient) string {
	return strings.NewReplacer(
		tokenUsername, r.Username,
		tokenFirstName, r.FirstName,
		tokenLastName, r.LastName,
	).Replace(template)
}
