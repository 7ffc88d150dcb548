// Package sqlrange turns key ranges into SQL predicates and checks them
// against a SQLite table of records.
//
// Keys are stored as 16-byte big-endian blobs, which SQLite compares
// bytewise, so BETWEEN on blobs follows key order.
package sqlrange

import (
	"strings"

	"zrange/pkg/common"
)

// Where builds "(col BETWEEN ? AND ?) OR ..." for ranges, with the bounds
// as arguments in order. A single-key range becomes "col = ?". No ranges
// give "0" so the predicate matches nothing.
func Where(column string, ranges []common.ZRange) (string, []any) {
	if len(ranges) == 0 {
		return "0", nil
	}
	var sb strings.Builder
	args := make([]any, 0, 2*len(ranges))
	if len(ranges) > 1 {
		sb.WriteByte('(')
	}
	for i, r := range ranges {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		if r.Min.Eq(&r.Max) {
			sb.WriteString("(" + column + " = ?)")
			args = append(args, common.KeyBytes(r.Min))
			continue
		}
		sb.WriteString("(" + column + " BETWEEN ? AND ?)")
		args = append(args, common.KeyBytes(r.Min), common.KeyBytes(r.Max))
	}
	if len(ranges) > 1 {
		sb.WriteByte(')')
	}
	return sb.String(), args
}
