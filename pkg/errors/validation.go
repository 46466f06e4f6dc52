package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePath validates a file path given to the CLI or API for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	return nil
}

// ValidateDocumentFilename validates a document filename supplied with an
// uploaded document. It ensures the filename is a simple basename and only
// uses it for error context, never to open files.
func ValidateDocumentFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidInput, "document filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidInput, "document filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidInput, "document filename cannot be a hidden file")
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "document filename contains invalid control characters")
		}
	}

	return nil
}

// nodeIDRegex matches XML NCName-ish identifiers used as BPMN element ids.
var nodeIDRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// ValidateNodeID validates a node id requested through the CLI or API.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "node id too long (max 256 characters)")
	}

	if !nodeIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid node id: %q", id)
	}

	return nil
}
