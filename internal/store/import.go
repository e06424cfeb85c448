package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/titanous/json5"
)

// ClassesFile lists the classes of a data directory as [{id, name}].
const ClassesFile = "classes.json"

func readSnapshotFile(dir, classID string, kind Kind) (Snapshot, bool, error) {
	for _, format := range []Format{FormatHTML, FormatJSON} {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", classID, kind, format))
		contents, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Snapshot{}, false, err
		}
		return Snapshot{
			ClassID:  classID,
			Kind:     kind,
			Format:   format,
			Contents: contents,
		}, true, nil
	}
	return Snapshot{}, false, nil
}

// ImportDirectory loads a data directory of <id>_roster.html and
// <id>_attendance.html exports (or their .json conversions) described by
// classes.json. It returns how many snapshots were stored, classes missing
// an export are stored without it.
func (s Store) ImportDirectory(ctx context.Context, dir string, at time.Time) (int, error) {
	contents, err := os.ReadFile(filepath.Join(dir, ClassesFile))
	if err != nil {
		return 0, err
	}
	var classes []Class
	err = json5.Unmarshal(contents, &classes)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", ClassesFile, err)
	}

	err = s.PutClasses(ctx, classes, at)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, c := range classes {
		for _, kind := range []Kind{KindRoster, KindAttendance} {
			snapshot, ok, err := readSnapshotFile(dir, c.ID, kind)
			if err != nil {
				return count, err
			}
			if !ok {
				continue
			}
			snapshot.ScrapedAt = at
			err = s.PutSnapshot(ctx, snapshot)
			if err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}
