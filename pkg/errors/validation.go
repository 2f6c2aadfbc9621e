package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateFilePath validates a path to an xLights export handed in by a
// client. Unlike repository paths these may be absolute, but they must name
// an XML file and may not carry control characters.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Extension must be .xml (case-insensitive)
func ValidateFilePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "file path is required")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if !strings.EqualFold(filepath.Ext(path), ".xml") {
		return New(ErrCodeInvalidPath, "expected an .xml file: %q", filepath.Base(path))
	}

	return nil
}

// ValidateControllerName validates a controller name used as a selector.
// xLights allows almost anything in a name, so only empty names, control
// characters and absurd lengths are rejected.
func ValidateControllerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "controller name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "controller name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "controller name contains invalid control characters")
		}
	}

	return nil
}
