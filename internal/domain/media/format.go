package media

import (
	"errors"
	"path"
	"strings"
)

const maxFormatLen = 16

// NormalizeFormat validates and lower-cases a container format token.
// Tokens double as ffmpeg -f values and file extensions, so only
// [a-z0-9_] is accepted.
func NormalizeFormat(raw string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", errors.New("empty format")
	}
	if len(value) > maxFormatLen {
		return "", errors.New("format too long")
	}
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return "", errors.New("invalid format")
		}
	}
	return value, nil
}

// FormatFromFileName derives the source format from an uploaded file name.
func FormatFromFileName(name string) (string, error) {
	value := strings.TrimSpace(name)
	if value == "" {
		return "", errors.New("missing file name")
	}

	value = strings.ReplaceAll(value, "\\", "/")
	ext := path.Ext(path.Base(value))
	if ext == "" || ext == "." {
		return "", errors.New("file name has no extension")
	}
	return NormalizeFormat(strings.TrimPrefix(ext, "."))
}
