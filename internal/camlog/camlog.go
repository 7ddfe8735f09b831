// Package camlog parses camera acquisition logs produced by the widefield
// rig firmware. The log records, for every captured frame, which excitation
// LED was active and the native camera timestamp.
package camlog

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Entry is one per-frame record from the camera log.
type Entry struct {
	ChannelID int     // Excitation channel (LED) active for this frame
	FrameID   int     // 1-based frame number in capture order
	Timestamp float64 // Native camera timestamp in seconds
}

// ledPattern matches the only semantically significant log lines:
// #LED:<channel_id>,<frame_id>,<timestamp>. Everything else in the log is
// unrelated firmware diagnostics and is skipped silently.
var ledPattern = regexp.MustCompile(`^#LED:(\d+),(\d+),(\d+(?:\.\d+)?)$`)

// Parse reads the camera log and returns its LED records in file order,
// truncated to at most maxEntries. Callers pass the cache's actual written
// frame count as maxEntries so that log entries beyond what was cached are
// discarded. A log with no matching lines yields an empty, non-nil slice.
func Parse(path string, maxEntries int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening camera log: %w", err)
	}
	defer f.Close()

	entries := make([]Entry, 0, maxEntries)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(entries) >= maxEntries {
			break
		}

		match := ledPattern.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if match == nil {
			continue
		}

		channelID, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("invalid channel id '%s': %w", match[1], err)
		}

		frameID, err := strconv.Atoi(match[2])
		if err != nil {
			return nil, fmt.Errorf("invalid frame id '%s': %w", match[2], err)
		}

		timestamp, err := strconv.ParseFloat(match[3], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp '%s': %w", match[3], err)
		}

		entries = append(entries, Entry{
			ChannelID: channelID,
			FrameID:   frameID,
			Timestamp: timestamp,
		})
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading camera log '%s': %w", path, err)
	}

	return entries, nil
}
