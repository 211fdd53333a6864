package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	filenameAllowed = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	tenantIDAllowed = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// SanitizeFilename reduces a filename to its base name and strips every
// character outside [A-Za-z0-9._-], matching what the uploads directory
// layout expects.
func SanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	sanitized := filenameAllowed.ReplaceAllString(base, "")
	sanitized = strings.Trim(sanitized, ".")

	if sanitized == "" {
		sanitized = "unnamed_file"
	}

	// Limit length (keeping extension)
	ext := filepath.Ext(sanitized)
	nameWithoutExt := strings.TrimSuffix(sanitized, ext)

	const maxNameLength = 100
	if len(nameWithoutExt) > maxNameLength {
		nameWithoutExt = nameWithoutExt[:maxNameLength]
	}

	return nameWithoutExt + ext
}

// StoredName builds the collision-free on-disk name for an upload:
// {unix_timestamp}_{sanitized basename}.
func StoredName(filename string, now time.Time) string {
	return fmt.Sprintf("%d_%s", now.Unix(), SanitizeFilename(filename))
}

// SanitizeTenantID strips every character outside [A-Za-z0-9_-] from a raw
// tenant identifier. No case folding.
func SanitizeTenantID(raw string) string {
	return tenantIDAllowed.ReplaceAllString(raw, "")
}
