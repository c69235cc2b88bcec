package endpoint

import (
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/compliance-gateway/internal/property"
)

// SoQL literal helpers. Values are embedded in $where expressions and the
// whole query string is percent-encoded by url.Values.

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func eq(col, val string) string {
	return col + "=" + quote(val)
}

func in(col string, vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = quote(v)
	}
	return col + " in (" + strings.Join(quoted, ",") + ")"
}

func floating(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}

func joinAnd(clauses []string) string {
	out := clauses[:0]
	for _, c := range clauses {
		if c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, " AND ")
}

// addressWhere matches the house number exactly and the street by its core
// words, since datasets disagree on suffix spelling. Without a house number
// it returns "" and the variant falls back to full-text search.
func addressWhere(addr, houseCol, streetCol string) string {
	house, street := property.SplitAddress(addr)
	if house == "" {
		return ""
	}
	clauses := []string{eq(houseCol, strings.ToUpper(house))}
	if core := property.StreetCore(street); core != "" {
		clauses = append(clauses, "upper("+streetCol+") like "+quote("%"+core+"%"))
	}
	return joinAnd(clauses)
}

// lienWhere filters the lien list, which stores the key as three columns
// without padding.
func lienWhere(key string) string {
	k, err := property.ParseKey(key)
	if err != nil {
		return eq("borough", key)
	}
	return joinAnd([]string{
		eq("borough", strconv.Itoa(k.Borough)),
		eq("block", strconv.Itoa(k.Block)),
		eq("lot", strconv.Itoa(k.Lot)),
	})
}

var hearingBoroughs = map[int]string{
	1: "MANHATTAN",
	2: "BRONX",
	3: "BROOKLYN",
	4: "QUEENS",
	5: "STATEN IS",
}

// hearingWhere filters hearings by the violation location, which is stored
// as a borough name and zero-padded block and lot.
func hearingWhere(key string) string {
	k, err := property.ParseKey(key)
	if err != nil {
		return eq("violation_location_block_no", key)
	}
	return joinAnd([]string{
		eq("violation_location_borough", hearingBoroughs[k.Borough]),
		eq("violation_location_block_no", leftPad(k.Block, 5)),
		eq("violation_location_lot_no", leftPad(k.Lot, 4)),
	})
}

func leftPad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func circle(pt *geom.Point, radiusM float64) string {
	if pt == nil {
		return ""
	}
	return "within_circle(the_geom, " +
		strconv.FormatFloat(pt.Y(), 'f', 6, 64) + ", " +
		strconv.FormatFloat(pt.X(), 'f', 6, 64) + ", " +
		strconv.FormatFloat(radiusM, 'f', -1, 64) + ")"
}
