package errors

import (
	"strings"
	"unicode"
)

// ValidateLabel validates a display label for a node, cluster or diagram.
// Labels may contain newlines (rendered as line breaks) but no other
// control characters, and must not be blank.
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return New(ErrCodeInvalidInput, "label cannot be empty")
	}
	if len(label) > 512 {
		return New(ErrCodeInvalidInput, "label too long (max 512 characters)")
	}
	for _, r := range label {
		if r != '\n' && unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "label %q contains invalid control characters", label)
		}
	}
	return nil
}

// ValidateFilename validates an output filename stem.
// It ensures the name is a simple basename without path components, so a
// diagram name can never write outside the output directory.
func ValidateFilename(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "filename cannot be empty")
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return New(ErrCodeInvalidInput, "filename %q cannot contain path separators", name)
	}
	if name == "." || name == ".." {
		return New(ErrCodeInvalidInput, "filename %q is not a valid name", name)
	}
	return nil
}

// ValidateAttrKey validates a raw Graphviz attribute name. Names are
// written into DOT unquoted, so only identifiers are accepted:
// a letter or underscore followed by letters, digits or underscores.
func ValidateAttrKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidInput, "attribute name cannot be empty")
	}
	if len(key) > 64 {
		return New(ErrCodeInvalidInput, "attribute name too long (max 64 characters)")
	}
	for i, r := range key {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return New(ErrCodeInvalidInput, "attribute name %q is not an identifier", key)
		}
	}
	return nil
}
