package bridge

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// forbiddenFilenameChars lists the characters invalid on at least one of
// Windows/macOS/Linux filesystems; sanitizeFilename replaces each with '_'.
const forbiddenFilenameChars = `/\:*?"<>|`

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenFilenameChars, r) {
			return '_'
		}
		return r
	}, name)
}

// FixFilename is the exported form of fixFilename, for package telegram's
// Telegram -> remote transcoding pipeline.
func FixFilename(filename, ext string) (string, bool) { return fixFilename(filename, ext) }

// fixFilename appends ext when filename has no extension. A filename that
// already has an extension is returned unchanged; the bool reports whether
// the returned name ends in ext (compared case-insensitively).
func fixFilename(filename, ext string) (string, bool) {
	if ext == "" {
		return filename, false
	}
	ext = strings.TrimPrefix(ext, ".")
	current := strings.TrimPrefix(path.Ext(filename), ".")
	if current != "" {
		return filename, strings.EqualFold(current, ext)
	}
	return filename + "." + ext, true
}

// extractFilenameFromHeaders parses Content-Disposition's filename or
// filename* parameter (mime.ParseMediaType already decodes the RFC 2231/5987
// extended form into the plain "filename" key).
func extractFilenameFromHeaders(h http.Header) string {
	cd := h.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	return sanitizeFilename(params["filename"])
}

// extractFilenameFromURL takes the last path segment of u, if any.
func extractFilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return ""
	}
	return sanitizeFilename(base)
}

// guessExts returns the file extensions (without leading dot) registered
// for contentType, stripping any "; charset=..." suffix first.
func guessExts(contentType string) []string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return nil
	}
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = strings.TrimPrefix(e, ".")
	}
	return out
}

// generateDefaultFilename synthesizes a name from a mime type and a
// disambiguating id when nothing better can be recovered.
func generateDefaultFilename(id string, contentType string) string {
	exts := guessExts(contentType)
	ext := "bin"
	if len(exts) > 0 {
		ext = exts[0]
	}
	return "file_" + id + "." + ext
}

// getFinalFilename resolves the best filename for a downloaded attachment:
// Content-Disposition, then the URL's last path segment, then a synthesized
// name from the Content-Type, in that order of preference.
func getFinalFilename(h http.Header, rawURL string) string {
	if name := extractFilenameFromHeaders(h); name != "" {
		return name
	}
	if name := extractFilenameFromURL(rawURL); name != "" {
		return name
	}
	return generateDefaultFilename(strconv.FormatInt(int64(len(rawURL)), 10), h.Get("Content-Type"))
}

// getTgDocFileName resolves a Telegram document's filename, falling back to
// the file's unique id plus a guessed extension when Telegram reports none.
func getTgDocFileName(reportedName, fileUniqueID, mimeType string) string {
	if reportedName != "" {
		return sanitizeFilename(reportedName)
	}
	exts := guessExts(mimeType)
	if len(exts) == 0 {
		return sanitizeFilename(fileUniqueID)
	}
	name, _ := fixFilename(fileUniqueID, exts[0])
	return sanitizeFilename(name)
}
