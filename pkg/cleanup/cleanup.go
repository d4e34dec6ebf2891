/*
Copyright © 2023 Jeff Berkowitz (pdxjjb@gmail.com)

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package cleanup removes the artifacts a previous simulation run left in
// the working directory. Removal is best effort and never fails.
package cleanup

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// Set names what to remove, relative to the working directory.
type Set struct {
	Dirs     []string // removed recursively; must stay below the working directory
	Patterns []string // path.Match patterns; matches removed one by one
}

// Defaults is the artifact set of a QuestaSim run whose elaborated design
// is called snapshot.
func Defaults(snapshot string) Set {
	return Set{
		Dirs:     []string{"work", snapshot},
		Patterns: []string{"*.log", "*.wlf", "transcript", "*.ucdb", "covdb*"},
	}
}

// Result records what Clean did. Paths are relative to the directory
// that was cleaned.
type Result struct {
	Removed []string
	Skipped []string // matched but could not be removed
}

// Clean removes s from dir. Errors are logged at debug level and
// otherwise ignored, so Clean is safe to call before every run.
func Clean(dir string, s Set, logger *zap.Logger) Result {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "."
	}
	var r Result

	for _, d := range s.Dirs {
		if d == "" {
			continue
		}
		if !filepath.IsLocal(d) {
			logger.Debug("directory outside the working directory", zap.String("dir", d))
			r.Skipped = append(r.Skipped, d)
			continue
		}
		full := filepath.Join(dir, d)
		if _, err := os.Lstat(full); err != nil {
			continue
		}
		if err := os.RemoveAll(full); err != nil {
			logger.Debug("cannot remove directory", zap.String("dir", full), zap.Error(err))
			r.Skipped = append(r.Skipped, d)
			continue
		}
		r.Removed = append(r.Removed, d)
	}

	fsys := os.DirFS(dir)
	for _, p := range s.Patterns {
		matches, err := fs.Glob(fsys, p)
		if err != nil {
			logger.Debug("bad cleanup pattern", zap.String("pattern", p), zap.Error(err))
			continue
		}
		for _, m := range matches {
			full := filepath.Join(dir, filepath.FromSlash(m))
			if err := os.Remove(full); err != nil {
				if !os.IsNotExist(err) {
					logger.Debug("cannot remove file", zap.String("file", full), zap.Error(err))
					r.Skipped = append(r.Skipped, m)
				}
				continue
			}
			r.Removed = append(r.Removed, m)
		}
	}

	sort.Strings(r.Removed)
	sort.Strings(r.Skipped)
	logger.Debug("cleanup done", zap.String("dir", dir),
		zap.Strings("removed", r.Removed), zap.Strings("skipped", r.Skipped))
	return r
}
