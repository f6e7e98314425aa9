// Package memory persists cycle summaries across runs
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

// File holds the previous cycle's summary, the only context carried
// into the next cycle's opening prompt.
type File struct {
	path string
}

// NewFile creates a summary file handle
func NewFile(path string) *File {
	return &File{path: path}
}

// Load returns the stored summary, or empty when none exists yet
func (f *File) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load summary: %w", err)
	}
	return string(data), nil
}

// Save writes the summary atomically: a temp file in the same
// directory, then a rename over the target.
func (f *File) Save(summary string) error {
	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("save summary: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(summary), 0644); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

var (
	availablePattern = regexp.MustCompile(`Available: \$(\d+\.?\d*)`)
	lockedPattern    = regexp.MustCompile(`Locked: \$(\d+\.?\d*)`)
	totalPattern     = regexp.MustCompile(`Balance: \$(\d+\.?\d*)`)
)

// BalanceSnapshot is the balance triple embedded in a cycle summary
type BalanceSnapshot struct {
	Available decimal.Decimal
	Locked    decimal.Decimal
	Total     decimal.Decimal
}

// ExtractBalances scrapes the balance figures out of a free-text
// summary. A structured snapshot from the account service is preferred;
// this is the fallback when only the text survives.
func ExtractBalances(summary string) BalanceSnapshot {
	return BalanceSnapshot{
		Available: matchAmount(availablePattern, summary),
		Locked:    matchAmount(lockedPattern, summary),
		Total:     matchAmount(totalPattern, summary),
	}
}

func matchAmount(re *regexp.Regexp, s string) decimal.Decimal {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
