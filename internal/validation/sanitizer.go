package validation

import (
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeFilename strips directory components and unsafe characters from an
// uploaded file name
func SanitizeFilename(filename string) string {
	result := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if result == "." || result == "/" {
		result = ""
	}

	unsafe := []string{":", "*", "?", "\"", "<", ">", "|", "\x00"}
	for _, char := range unsafe {
		result = strings.ReplaceAll(result, char, "")
	}

	// Remove leading/trailing dots and spaces
	result = strings.Trim(result, ". ")

	if result == "" {
		return "data.csv"
	}
	if len(result) > 255 {
		result = result[len(result)-255:]
	}
	return result
}

// SanitizeName trims a display name and drops control characters
func SanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}
