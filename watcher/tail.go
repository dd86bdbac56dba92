package watcher

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	// firstSightWindowBytes bounds the initial read of a source that has
	// no recorded offset, so a years-old log is not reprocessed wholesale.
	firstSightWindowBytes = 256 * 1024
	// backscanBlockBytes is the fixed block size for reverse reads.
	backscanBlockBytes = 512 * 1024
)

var (
	reLogFileName  = regexp.MustCompile(`(?i)^eqlog_(.+)_(.+)\.txt$`)
	reLogFileLoose = regexp.MustCompile(`(?i)^eqlog_([^_]+)`)
)

// CharacterFromPath extracts the character name from the
// eqlog_<Name>_<Server>.txt convention, falling back to a looser split
// and finally to the bare file name when the pattern does not match.
func CharacterFromPath(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if m := reLogFileName.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	if m := reLogFileLoose.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsLogFileName reports whether a file name follows the source
// convention.
func IsLogFileName(name string) bool {
	return reLogFileName.MatchString(name)
}

// ReadTail reads exactly the bytes appended since offset. A source with
// no recorded offset (offset <= 0), or one that shrank below the
// offset, is read only over its final bounded window. The returned
// offset is the file's current size, recorded unconditionally even when
// nothing was appended.
func ReadTail(path string, offset int64, window int64) (string, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", offset, eris.Wrapf(err, "stat %s", path)
	}
	size := info.Size()

	start := size - window
	if start < 0 {
		start = 0
	}
	if offset > 0 && offset <= size {
		start = offset
	}

	if start >= size {
		return "", size, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", offset, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	buf := make([]byte, size-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		return "", offset, eris.Wrapf(err, "read %s", path)
	}
	return string(buf), size, nil
}

// readWindow reads at most the final window bytes of a file.
func readWindow(path string, window int64) (string, error) {
	text, _, err := ReadTail(path, 0, window)
	return text, err
}

// BackscanZone scans a source backward from end-of-file in fixed-size
// blocks, reassembling lines split at block boundaries, and returns the
// most recent zone-change event. It returns nil once the byte budget
// (0 = whole file) is exhausted or start-of-file is reached without a
// match.
func BackscanZone(path string, budget int64) (*Event, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stat %s", path)
	}
	size := info.Size()
	if size <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	limit := size
	if budget > 0 && budget < size {
		limit = budget
	}

	endPos := size
	var readTotal int64
	carry := ""
	for endPos > 0 && readTotal < limit {
		toRead := int64(backscanBlockBytes)
		if toRead > endPos {
			toRead = endPos
		}
		if rem := limit - readTotal; toRead > rem {
			toRead = rem
		}
		startPos := endPos - toRead
		buf := make([]byte, toRead)
		if _, err := f.ReadAt(buf, startPos); err != nil && err != io.EOF {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		current := string(buf) + carry

		// Newest line first within the block.
		idxEnd := len(current)
		for idxEnd > 0 {
			idxNL := strings.LastIndex(current[:idxEnd], "\n")
			line := strings.TrimSuffix(current[idxNL+1:idxEnd], "\r")
			if ev, ok := Classify(line); ok && ev.Kind == EventZoneChange {
				return &ev, nil
			}
			if idxNL < 0 {
				break
			}
			idxEnd = idxNL
		}

		// The block's first partial line belongs to the next earlier block.
		if firstNL := strings.Index(current, "\n"); firstNL >= 0 {
			carry = current[:firstNL]
		} else {
			carry = current
		}

		endPos = startPos
		readTotal += toRead
	}
	return nil, nil
}
