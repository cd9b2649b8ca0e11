package ods

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// keySep separates key components. It sorts below any printable character,
// so joining components compares the same as element-wise tuple comparison.
const keySep = "\x1f"

// SortEntries orders records by a composite key built from the stringified
// values of terms, in term order. Values are compared as strings
// deliberately: mixed absent/number/instant values cannot be compared
// type-wise, and Time values render fixed-width so their string order is
// chronological. Keys are NFC-normalized so equal-looking strings dedup
// byte-stably.
//
// With collapse false, the record's original position is appended to the
// key, guaranteeing uniqueness: all records survive, merely reordered.
// With collapse true, records sharing a composite key are reduced to one
// survivor (the last one encountered in input order); this is the
// deduplication mechanism.
//
// The input slice is not modified; surviving records are copied.
func SortEntries(entries []Record, terms []string, collapse, reverse bool) []Record {
	keyed := make(map[string]int, len(entries))
	for i, rec := range entries {
		parts := make([]string, 0, len(terms)+1)
		for _, term := range terms {
			parts = append(parts, Stringify(rec[term]))
		}
		if !collapse {
			parts = append(parts, fmt.Sprintf("%012d", i))
		}
		key := norm.NFC.String(strings.Join(parts, keySep))
		keyed[key] = i
	}

	keys := make([]string, 0, len(keyed))
	for key := range keyed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if reverse {
		for l, r := 0, len(keys)-1; l < r; l, r = l+1, r-1 {
			keys[l], keys[r] = keys[r], keys[l]
		}
	}

	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		out = append(out, entries[keyed[key]].Clone())
	}
	return out
}
