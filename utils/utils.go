// Package utils provides configuration loading and the input parsing helpers
// shared by the data-access layer and the CLI.
package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/ziyixi/tasksync/schema"
)

// Trimmed returns the value without surrounding whitespace and whether
// anything is left.
func Trimmed(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	return v, v != ""
}

// ParseID parses an entity identifier from user input. Only finite,
// non-negative integers in the unsigned 64-bit range are accepted.
func ParseID(raw string) (uint64, bool) {
	v, ok := Trimmed(raw)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseDate normalizes a YYYY-MM-DD date from user input.
func ParseDate(raw string) (string, bool) {
	v, ok := Trimmed(raw)
	if !ok {
		return "", false
	}
	d, err := time.ParseInLocation(schema.DateLayout, v, time.Local)
	if err != nil {
		return "", false
	}
	return d.Format(schema.DateLayout), true
}

// FormatID renders an identifier for display and for form values.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
