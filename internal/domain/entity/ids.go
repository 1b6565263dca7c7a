package entity

import (
	"strconv"
	"strings"
)

// FormatID renders an ID the way index values store it
func FormatID(id int64) string {
	return formatID(id)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// CompositeRef renders the natural key of a sub-record the way its ref index stores it
func CompositeRef(ids ...int64) string {
	return compositeRef(ids...)
}

// compositeRef joins IDs into a natural key, e.g. "12:40"
func compositeRef(ids ...int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = formatID(id)
	}
	return strings.Join(parts, ":")
}
