package taskfile

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout prefixes every generated task file name.
const TimestampLayout = "2006-01-02T15-04-05"

const (
	maxSlugLen    = 30
	maxSegmentLen = 40
	defaultSlug   = "task"
)

var (
	disallowedRegex = regexp.MustCompile(`[^A-Za-z0-9 _-]+`)
	spacesRegex     = regexp.MustCompile(` +`)
)

// Slug derives the file-name-safe part of a task name: only ASCII letters,
// digits, space, underscore and hyphen survive, runs of spaces become a
// single underscore and the result is cut to 30 characters.
func Slug(name string) string {
	slug := strings.TrimSpace(disallowedRegex.ReplaceAllString(name, ""))
	slug = spacesRegex.ReplaceAllString(slug, "_")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	if slug == "" {
		return defaultSlug
	}
	return slug
}

// SanitizeSegment cleans one sub-folder path segment. ok is false when
// nothing usable remains.
func SanitizeSegment(segment string) (clean string, ok bool) {
	clean = strings.TrimSpace(disallowedRegex.ReplaceAllString(segment, ""))
	if clean == "" || clean == "." || clean == ".." {
		return "", false
	}
	if len(clean) > maxSegmentLen {
		clean = strings.TrimSpace(clean[:maxSegmentLen])
	}
	return clean, clean != ""
}

// SanitizePath splits a slash or backslash separated folder path and keeps
// the usable segments.
func SanitizePath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(strings.ReplaceAll(path, `\`, "/"), "/") {
		if clean, ok := SanitizeSegment(seg); ok {
			segments = append(segments, clean)
		}
	}
	return segments
}

// FileName builds "<timestamp>_<slug>.md".
func FileName(now time.Time, slug string) string {
	return fmt.Sprintf("%s_%s%s", now.Format(TimestampLayout), slug, Ext)
}

// PreciseFileName builds "<timestamp>-<microseconds>_<slug>.md", used when
// FileName collides within the same second.
func PreciseFileName(now time.Time, slug string) string {
	return fmt.Sprintf("%s-%06d_%s%s", now.Format(TimestampLayout), now.Nanosecond()/1000, slug, Ext)
}
