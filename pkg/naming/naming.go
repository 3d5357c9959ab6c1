// Package naming derives Name tags for acquisition artifacts. Generated
// names stay within the 255-character tag-value cap that EC2 enforces
// while keeping a human-readable prefix and a checksum that makes copies
// of the same source distinguishable across callers.
package naming

import (
	"fmt"
	"hash/crc32"
	"regexp"
	"time"
)

// EC2 caps tag values at 255 characters.
const maxNameLength = 255

const copySuffix = "-copy"

// snapshotTimeLayout is the 14-character timestamp appended to snapshot
// names.
const snapshotTimeLayout = "20060102150405"

var nameTagPattern = regexp.MustCompile(`^.{1,255}$`)

// InvalidNameError reports a name that violates the tag-value constraint.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("name %q does not comply with %s", e.Name, nameTagPattern.String())
}

// Validate checks a name against the tag-value constraint.
func Validate(name string) error {
	if !nameTagPattern.MatchString(name) {
		return &InvalidNameError{Name: name}
	}
	return nil
}

// GenerateCopyName derives the Name tag for a copy of a resource. The name
// is composed as {prefix-}{base}-{checksum}-copy where the checksum is the
// CRC-32 of callerIdentity + sourceID rendered as 8 hex digits. The prefix
// and base are truncated, left-most characters kept, so the whole name fits
// the tag-value cap; the checksum is never truncated since it is what keeps
// two copies of the same source apart.
func GenerateCopyName(base, sourceID, callerIdentity, prefix string) (string, error) {
	checksum := fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(callerIdentity+sourceID)))
	truncateAt := maxNameLength - len(checksum) - len(copySuffix) - 1

	var name string
	if prefix != "" {
		prefix += "-"
		if len([]rune(prefix)) > truncateAt {
			prefix = truncate(prefix, truncateAt)
		}
		truncateAt -= len([]rune(prefix))
		name = fmt.Sprintf("%s%s-%s%s", prefix, truncate(base, truncateAt), checksum, copySuffix)
	} else {
		name = fmt.Sprintf("%s-%s%s", truncate(base, truncateAt), checksum, copySuffix)
	}

	if err := Validate(name); err != nil {
		return "", err
	}
	return name, nil
}

// GenerateSnapshotName derives the Name tag for a snapshot taken at the
// given time: {base}-{timestamp}, with the base truncated so the whole name
// fits the tag-value cap.
func GenerateSnapshotName(base string, when time.Time) (string, error) {
	timestamp := when.Format(snapshotTimeLayout)
	truncateAt := maxNameLength - len(timestamp) - 1

	name := fmt.Sprintf("%s-%s", truncate(base, truncateAt), timestamp)
	if err := Validate(name); err != nil {
		return "", err
	}
	return name, nil
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
