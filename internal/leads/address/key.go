package address

import "strings"

// KeySeparator joins the cleaned components of a canonical key.
const KeySeparator = "_"

// BuildKey derives the deduplication key for a property.
// Each component is lower-cased and stripped to [a-z0-9]; state is not part of
// the key. Street suffixes are not expanded, so "Main St" and "Main Street"
// produce different keys.
func BuildKey(street, city, zip string) string {
	return clean(street) + KeySeparator + clean(city) + KeySeparator + clean(zip)
}

// Key is BuildKey applied to a parsed address.
func (a Address) Key() string {
	return BuildKey(a.Street, a.City, a.Zip)
}

func clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
