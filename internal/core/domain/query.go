package domain

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Reserved list query keys; every other key is treated as a filter.
const (
	QueryKeyPage   = "page"
	QueryKeyLimit  = "limit"
	QueryKeyFields = "fields"
	QueryKeySort   = "sort"
)

// FilterOp is a comparison operator carried by a filter key, e.g. createdAt[gte]=...
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpNe  FilterOp = "ne"
	OpGt  FilterOp = "gt"
	OpGte FilterOp = "gte"
	OpLt  FilterOp = "lt"
	OpLte FilterOp = "lte"
)

// FieldKind tells translators how a filter value is typed.
type FieldKind int

const (
	KindString FieldKind = iota
	KindTime
	// KindArray fields only support OpEq, meaning "contains".
	KindArray
)

// UserFields lists the public user attributes in response order.
// Password is deliberately absent: it can be neither filtered, sorted nor selected.
var UserFields = []string{
	"id", "firstname", "lastname", "username", "phoneNumber",
	"address", "role", "wishlist", "createdAt", "updatedAt",
}

var userFieldKinds = map[string]FieldKind{
	"id":          KindString,
	"firstname":   KindString,
	"lastname":    KindString,
	"username":    KindString,
	"phoneNumber": KindString,
	"address":     KindString,
	"role":        KindString,
	"wishlist":    KindArray,
	"createdAt":   KindTime,
	"updatedAt":   KindTime,
}

// FieldKindOf returns the kind of a public user field.
func FieldKindOf(field string) (FieldKind, bool) {
	k, ok := userFieldKinds[field]
	return k, ok
}

// Filter is a single field comparison. Value is a string or a time.Time.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// QueryDefaults bounds pagination when parsing raw parameters.
type QueryDefaults struct {
	Limit    int
	MaxLimit int
}

// DefaultQueryDefaults mirrors page=1, limit=10.
var DefaultQueryDefaults = QueryDefaults{Limit: 10, MaxLimit: 100}

// ListQuery is the parsed form of the list endpoint's query string.
type ListQuery struct {
	Page    int
	Limit   int
	Filters []Filter
	Sort    []SortField

	// Fields is the projection; when Exclude is set the listed fields are removed instead.
	Fields  []string
	Exclude bool
}

// DefaultSort is applied when no sort parameter is given.
var DefaultSort = []SortField{{Field: "createdAt", Desc: true}}

// ParseListQuery turns raw query parameters into a ListQuery.
// Unknown filter keys are ignored; malformed reserved keys yield ErrInvalidQuery.
func ParseListQuery(values url.Values, defaults QueryDefaults) (ListQuery, error) {
	if defaults.Limit <= 0 {
		defaults.Limit = DefaultQueryDefaults.Limit
	}
	if defaults.MaxLimit <= 0 {
		defaults.MaxLimit = DefaultQueryDefaults.MaxLimit
	}

	q := ListQuery{Page: 1, Limit: defaults.Limit}

	var err error
	if raw := values.Get(QueryKeyPage); raw != "" {
		if q.Page, err = parsePositive(QueryKeyPage, raw); err != nil {
			return ListQuery{}, err
		}
	}
	if raw := values.Get(QueryKeyLimit); raw != "" {
		if q.Limit, err = parsePositive(QueryKeyLimit, raw); err != nil {
			return ListQuery{}, err
		}
	}
	if q.Limit > defaults.MaxLimit {
		q.Limit = defaults.MaxLimit
	}
	// keep Offset within int32 so every backend can skip that far
	if q.Page-1 > math.MaxInt32/q.Limit {
		return ListQuery{}, fmt.Errorf("%w: page %d is out of range", ErrInvalidQuery, q.Page)
	}

	if q.Sort, err = parseSort(values.Get(QueryKeySort)); err != nil {
		return ListQuery{}, err
	}
	if q.Fields, q.Exclude, err = parseFields(values.Get(QueryKeyFields)); err != nil {
		return ListQuery{}, err
	}
	if q.Filters, err = parseFilters(values); err != nil {
		return ListQuery{}, err
	}
	return q, nil
}

// Offset is the number of records skipped before the current page.
func (q ListQuery) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt32/q.Limit {
		return math.MaxInt32
	}
	return (q.Page - 1) * q.Limit
}

// TotalPages returns ceil(total / limit).
func (q ListQuery) TotalPages(total int64) int64 {
	if q.Limit <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(total) / float64(q.Limit)))
}

// Project renders u restricted to the selected fields. id is always kept.
func (q ListQuery) Project(u User) map[string]any {
	all := map[string]any{
		"id":          u.ID,
		"firstname":   u.Firstname,
		"lastname":    u.Lastname,
		"username":    u.Username,
		"phoneNumber": u.PhoneNumber,
		"address":     u.Address,
		"role":        u.Role,
		"wishlist":    nonNil(u.Wishlist),
		"createdAt":   u.CreatedAt,
		"updatedAt":   u.UpdatedAt,
	}
	if len(q.Fields) == 0 {
		return all
	}

	out := make(map[string]any, len(all))
	if q.Exclude {
		for k, v := range all {
			out[k] = v
		}
		for _, f := range q.Fields {
			if f != "id" {
				delete(out, f)
			}
		}
		return out
	}

	out["id"] = all["id"]
	for _, f := range q.Fields {
		out[f] = all[f]
	}
	return out
}

func parsePositive(key, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidQuery, key, raw)
	}
	return n, nil
}

func parseSort(raw string) ([]SortField, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]SortField(nil), DefaultSort...), nil
	}
	var out []SortField
	for _, part := range splitList(raw) {
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimPrefix(part, "-")
		kind, ok := userFieldKinds[field]
		if !ok || kind == KindArray {
			return nil, fmt.Errorf("%w: cannot sort by %q", ErrInvalidQuery, field)
		}
		out = append(out, SortField{Field: field, Desc: desc})
	}
	return out, nil
}

func parseFields(raw string) ([]string, bool, error) {
	parts := splitList(raw)
	if len(parts) == 0 {
		return nil, false, nil
	}
	exclude := strings.HasPrefix(parts[0], "-")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.HasPrefix(part, "-") != exclude {
			return nil, false, fmt.Errorf("%w: fields cannot mix inclusion and exclusion", ErrInvalidQuery)
		}
		field := strings.TrimPrefix(part, "-")
		if _, ok := userFieldKinds[field]; !ok {
			return nil, false, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, field)
		}
		fields = append(fields, field)
	}
	return fields, exclude, nil
}

func parseFilters(values url.Values) ([]Filter, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Filter
	for _, key := range keys {
		switch key {
		case QueryKeyPage, QueryKeyLimit, QueryKeyFields, QueryKeySort:
			continue
		}

		field, op, err := splitFilterKey(key)
		if err != nil {
			return nil, err
		}
		kind, ok := userFieldKinds[field]
		if !ok {
			continue
		}
		if kind == KindArray && op != OpEq {
			return nil, fmt.Errorf("%w: %s only supports equality", ErrInvalidQuery, field)
		}

		for _, raw := range values[key] {
			var value any = raw
			if kind == KindTime {
				t, err := parseTime(raw)
				if err != nil {
					return nil, fmt.Errorf("%w: %s: %v", ErrInvalidQuery, key, err)
				}
				value = t
			}
			out = append(out, Filter{Field: field, Op: op, Value: value})
		}
	}
	return out, nil
}

// splitFilterKey parses "field" or "field[op]".
func splitFilterKey(key string) (string, FilterOp, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, OpEq, nil
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return "", "", fmt.Errorf("%w: malformed filter key %q", ErrInvalidQuery, key)
	}
	op := FilterOp(key[open+1 : len(key)-1])
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		return key[:open], op, nil
	default:
		return "", "", fmt.Errorf("%w: unsupported operator %q", ErrInvalidQuery, op)
	}
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
