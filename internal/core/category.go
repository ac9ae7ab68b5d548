package core

import (
	"fmt"
	"strings"
	"unicode"
)

// ResolveCategory returns the canonical name of the first category whose
// name or alias matches token, ignoring case. Unmatched tokens resolve to
// OtherCategory.
func ResolveCategory(token string, categories []Category) string {
	if name, ok := LookupCategory(token, categories); ok {
		return name
	}
	return OtherCategory
}

// LookupCategory is ResolveCategory without the fallback.
func LookupCategory(token string, categories []Category) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	for _, c := range categories {
		if c.Matches(token) {
			return c.Name, true
		}
	}
	return "", false
}

// EnsureOther returns the list with OtherCategory present. Creation order of
// the remaining categories is kept; a missing "other" is put first.
func EnsureOther(categories []Category) []Category {
	for _, c := range categories {
		if c.Name == OtherCategory {
			return categories
		}
	}
	out := make([]Category, 0, len(categories)+1)
	out = append(out, Category{Name: OtherCategory})
	return append(out, categories...)
}

// IsReserved reports whether name is the reserved fallback category.
func IsReserved(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), OtherCategory)
}

// NormalizeCategoryName lower-cases and validates a category name or alias.
// Names are single words because expense messages are split on whitespace.
func NormalizeCategoryName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", ErrEmptyCategory
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return "", &PolicyError{Reason: fmt.Sprintf("category name %q must be a single word", name)}
	}
	if LooksNumeric(name) {
		return "", &PolicyError{Reason: fmt.Sprintf("category name %q cannot start with a number", name)}
	}
	return name, nil
}

// CheckNameAvailable rejects a name or alias already used by any category.
func CheckNameAvailable(name string, categories []Category) error {
	if existing, ok := LookupCategory(name, categories); ok {
		return &PolicyError{Reason: fmt.Sprintf("name %q is already taken by category %q", name, existing)}
	}
	return nil
}

// FindCategory returns the category named exactly name (case-insensitive),
// aliases are not considered.
func FindCategory(name string, categories []Category) (Category, bool) {
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryNames lists the names in order.
func CategoryNames(categories []Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = c.Name
	}
	return out
}
