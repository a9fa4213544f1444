package session

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/api"
)

// itemErrRe matches server error strings of the form "Item <N>: <detail>"
// where N is a 0-based position in the submitted sequence.
var itemErrRe = regexp.MustCompile(`^Item (\d+): (.+)$`)

// MapRowErrors splits a flat list of server error strings into per-row
// details and global errors. Strings matching "Item N: detail" land in
// the row map under N; everything else is global. Rows with no matching
// error are absent from the map, never present with an empty list.
func MapRowErrors(errs []string) (rows map[int][]string, global []string) {
	rows = make(map[int][]string)
	for _, e := range errs {
		m := itemErrRe.FindStringSubmatch(e)
		if m == nil {
			global = append(global, e)
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			global = append(global, e)
			continue
		}
		rows[n] = append(rows[n], m[2])
	}
	return rows, global
}

// FieldForDetail attributes an error detail to a persisted field name, or
// "" when no field matches. Attribution is derived, not transmitted: the
// detail is scanned for the field's name with underscores replaced by
// spaces, case-insensitively ("Expiry Date is in the past" → expiry_date).
// When no full name appears, single tokens of a field name are tried as
// whole words ("Invalid date" → expiry_date); whole-word matching keeps
// short tokens like "id" from firing inside unrelated words.
func FieldForDetail(detail string) string {
	lower := strings.ToLower(detail)
	for _, name := range api.FieldNames {
		phrase := strings.ReplaceAll(name, "_", " ")
		if strings.Contains(lower, phrase) {
			return name
		}
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, name := range api.FieldNames {
		for _, tok := range strings.Split(name, "_") {
			for _, w := range words {
				if w == tok {
					return name
				}
			}
		}
	}
	return ""
}

// fieldErrors groups one row's details by attributed field. Details that
// match no field are returned separately; they still count toward the
// row's issue count but render at row level only.
func fieldErrors(details []string) (byField map[string][]string, rowOnly []string) {
	byField = make(map[string][]string)
	for _, d := range details {
		if f := FieldForDetail(d); f != "" {
			byField[f] = append(byField[f], d)
		} else {
			rowOnly = append(rowOnly, d)
		}
	}
	return byField, rowOnly
}
