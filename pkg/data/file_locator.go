package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const cacheDateLayout = "20060102"

// CacheFileName names a downloaded series: <exchange>_<SYMBOL>_<interval>_<from>_<to>.csv
func CacheFileName(exchange, symbol, interval string, from, to time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s.csv",
		strings.ToLower(exchange),
		strings.ToUpper(symbol),
		interval,
		from.UTC().Format(cacheDateLayout),
		to.UTC().Format(cacheDateLayout))
}

// CachePath joins dataDir and CacheFileName
func CachePath(dataDir, exchange, symbol, interval string, from, to time.Time) string {
	return filepath.Join(dataDir, CacheFileName(exchange, symbol, interval, from, to))
}

// FindDataFile returns the most recently modified cached series for the
// exchange, symbol and interval, or "" when none exists
func FindDataFile(dataDir, exchange, symbol, interval string) string {
	pattern := filepath.Join(dataDir, fmt.Sprintf("%s_%s_%s_*.csv",
		strings.ToLower(exchange), strings.ToUpper(symbol), interval))
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		found = append(found, candidate{path: m, mod: info.ModTime()})
	}
	if len(found) == 0 {
		return ""
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].mod.Equal(found[j].mod) {
			return found[i].path > found[j].path
		}
		return found[i].mod.After(found[j].mod)
	})
	return found[0].path
}
