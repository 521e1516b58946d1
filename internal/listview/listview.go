// Package listview filters and sorts entity lists for table display. Field
// names are dot paths over the entity's JSON form ("status.text",
// "userApplicantId"), so the same helpers serve applicants and reports.
package listview

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// Direction of a table sort.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// SortConfig is the active sort column and direction.
type SortConfig struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// RequestSort returns the sort config after the user selects key. The same
// key flips ascending to descending; anything else starts ascending.
func RequestSort(current *SortConfig, key string) SortConfig {
	direction := Ascending
	if current != nil && current.Key == key && current.Direction == Ascending {
		direction = Descending
	}
	return SortConfig{Key: key, Direction: direction}
}

// Filter keeps the items where any of fields, in string form, contains
// query case-insensitively. An empty query returns items unchanged.
func Filter[T any](items []T, fields []string, query string) []T {
	query = strings.ToLower(query)
	if query == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		doc := encode(item)
		for _, field := range fields {
			v := gjson.GetBytes(doc, field)
			if !v.Exists() {
				continue
			}
			if strings.Contains(strings.ToLower(v.String()), query) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Sort returns a sorted copy of items. The sort is stable: items with equal
// keys keep their relative order across calls. A nil config returns a copy
// in the original order.
func Sort[T any](items []T, cfg *SortConfig) []T {
	out := slices.Clone(items)
	if cfg == nil || cfg.Key == "" {
		return out
	}

	type keyed struct {
		item T
		key  gjson.Result
	}
	rows := make([]keyed, len(out))
	for i, item := range out {
		rows[i] = keyed{item: item, key: gjson.GetBytes(encode(item), cfg.Key)}
	}

	slices.SortStableFunc(rows, func(a, b keyed) int {
		c := Compare(a.key, b.key)
		if cfg.Direction == Descending {
			return -c
		}
		return c
	})

	for i := range rows {
		out[i] = rows[i].item
	}
	return out
}

// Value resolves a dot path against item's JSON form.
func Value(item any, path string) gjson.Result {
	return gjson.GetBytes(encode(item), path)
}

// Compare orders two resolved values. Missing and null values sort first,
// then booleans (false < true), numbers, and strings. Values of the same
// kind compare natively.
func Compare(a, b gjson.Result) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case rankBool:
		return boolInt(a.Bool()) - boolInt(b.Bool())
	case rankNumber:
		af, bf := a.Float(), b.Float()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case rankString, rankJSON:
		return strings.Compare(a.String(), b.String())
	}
	return 0
}

const (
	rankMissing = iota
	rankBool
	rankNumber
	rankString
	rankJSON
)

func rank(r gjson.Result) int {
	switch r.Type {
	case gjson.False, gjson.True:
		return rankBool
	case gjson.Number:
		return rankNumber
	case gjson.String:
		return rankString
	case gjson.JSON:
		return rankJSON
	}
	return rankMissing
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encode(item any) []byte {
	if raw, ok := item.(json.RawMessage); ok {
		return raw
	}
	b, err := json.Marshal(item)
	if err != nil {
		return nil
	}
	return b
}
