package xps

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DocumentProperties are written into the package core properties part.
type DocumentProperties struct {
	Title       string
	Subject     string
	Creator     string
	Keywords    string
	Description string
	Created     time.Time // zero means the export time
}

const maxNameLength = 64

// cleanPartSegment turns an arbitrary object name into a single part name
// segment. Characters that are reserved in part names become '_'.
func cleanPartSegment(s, fallback string) string {
	var sb strings.Builder
	n := 0
	for _, r := range s {
		if n == maxNameLength {
			break
		}
		switch {
		case r < 0x20 || r == 0x7f || unicode.IsSpace(r):
			r = '_'
		case strings.ContainsRune(`/\?*[]:%#<>"|'`, r):
			r = '_'
		}
		sb.WriteRune(r)
		n++
	}
	out := strings.Trim(sb.String(), ".")
	if out == "" {
		return fallback
	}
	return out
}

func validatePartName(s string) error {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return errors.New("empty part name is not allowed")
	}
	if !strings.HasPrefix(s, "/") {
		return errors.New("part name must start with '/'")
	}
	if strings.HasSuffix(s, "/") || strings.Contains(s, "//") {
		return errors.New("part name can not contain empty segments")
	}
	for _, seg := range strings.Split(s[1:], "/") {
		if strings.HasSuffix(seg, ".") {
			return errors.New("part name segments can not end with a dot")
		}
	}
	return nil
}
