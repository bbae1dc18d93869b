package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxUserTags is the capacity of a paper's user tag list.
const MaxUserTags = 3

// MaxTagLength bounds a single user tag, in characters.
const MaxTagLength = 50

// whitespaceRegex matches one or more whitespace characters (spaces, tabs, newlines).
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeTag normalizes a tag or keyword string by:
// - Converting to lowercase
// - Trimming leading/trailing whitespace
// - Collapsing multiple whitespace characters into a single space
func NormalizeTag(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// ValidateTag normalizes a user supplied tag and checks its bounds.
func ValidateTag(raw string) (string, error) {
	tag := NormalizeTag(raw)
	if tag == "" {
		return "", NewValidationError("tag", "must not be empty")
	}
	if utf8.RuneCountInString(tag) > MaxTagLength {
		return "", NewValidationError("tag", "must be at most 50 characters")
	}
	return tag, nil
}

// ContainsTag reports whether tags contains tag.
func ContainsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
