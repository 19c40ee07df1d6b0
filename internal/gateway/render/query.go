package render

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
)

// Page size used when limit is absent, and the largest limit accepted.
const (
	DefaultLimit = 1000
	MaxLimit     = 10000
)

// Filter operators, longest first so that "<=" is never read as "<".
var operators = []string{"!=", "<=", ">=", "=", "<", ">"}

// Condition is one parsed filter[] expression.
type Condition struct {
	Attribute string
	Operator  string
	Value     string
	// Quoted values always compare as strings.
	Quoted bool
	// Or marks an expression written with the "or " prefix.
	Or bool

	pattern *regexp.Regexp
}

// Query holds the list parameters of a GET request.
type Query struct {
	Expand     bool
	Attributes []string
	Conditions []Condition
	SortBy     []string
	Descending []bool
	Offset     int
	Limit      int
}

// ParseQuery reads expand, attributes, filter[], sort_by, sort_order, offset and limit.
func ParseQuery(values url.Values) (Query, error) {
	q := Query{Limit: DefaultLimit}

	for _, v := range splitCSV(values.Get("expand")) {
		if v == "resources" {
			q.Expand = true
		}
	}
	q.Attributes = splitCSV(values.Get("attributes"))

	filters := make([]string, 0, len(values["filter[]"])+len(values["filter"]))
	filters = append(filters, values["filter[]"]...)
	filters = append(filters, values["filter"]...)
	for _, raw := range filters {
		c, err := ParseCondition(raw)
		if err != nil {
			return Query{}, err
		}
		q.Conditions = append(q.Conditions, c)
	}

	q.SortBy = splitCSV(values.Get("sort_by"))
	orders := splitCSV(values.Get("sort_order"))
	q.Descending = make([]bool, len(q.SortBy))
	for i := range q.SortBy {
		order := "asc"
		switch {
		case i < len(orders):
			order = orders[i]
		case len(orders) > 0:
			order = orders[len(orders)-1]
		}
		switch strings.ToLower(order) {
		case "asc", "ascending":
		case "desc", "descending":
			q.Descending[i] = true
		default:
			return Query{}, apperrors.Errorf(apperrors.ErrBadRequest, "Invalid sort_order %s specified", order)
		}
	}

	var err error
	if v := values.Get("offset"); v != "" {
		if q.Offset, err = strconv.Atoi(v); err != nil || q.Offset < 0 {
			return Query{}, apperrors.Errorf(apperrors.ErrBadRequest, "Invalid offset %s specified", v)
		}
	}
	if v := values.Get("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil || q.Limit < 1 || q.Limit > MaxLimit {
			return Query{}, apperrors.Errorf(
				apperrors.ErrBadRequest,
				"Invalid limit %s specified, must be between 1 and %d",
				v,
				MaxLimit,
			)
		}
	}
	return q, nil
}

// ParseCondition parses "<attr><op><value>", optionally prefixed with "or ".
func ParseCondition(raw string) (Condition, error) {
	c := Condition{}
	expr := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(expr), "or ") {
		c.Or = true
		expr = strings.TrimSpace(expr[3:])
	}

	pos := -1
	for i := 0; i < len(expr) && pos < 0; i++ {
		for _, op := range operators {
			if strings.HasPrefix(expr[i:], op) {
				pos, c.Operator = i, op
				break
			}
		}
	}
	if pos <= 0 {
		return Condition{}, apperrors.Errorf(apperrors.ErrBadRequest, "Unknown filter operator specified in %s", raw)
	}

	c.Attribute = strings.TrimSpace(expr[:pos])
	value := strings.TrimSpace(expr[pos+len(c.Operator):])
	if len(value) >= 2 && (value[0] == '\'' || value[0] == '"') && value[len(value)-1] == value[0] {
		value = value[1 : len(value)-1]
		c.Quoted = true
	}
	c.Value = value

	if strings.Contains(value, "%") {
		if c.Operator != "=" && c.Operator != "!=" {
			return Condition{}, apperrors.Errorf(
				apperrors.ErrBadRequest,
				"Unsupported operator %s for wildcard filter %s",
				c.Operator,
				raw,
			)
		}
		parts := strings.Split(value, "%")
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		c.pattern = regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
	}
	return c, nil
}

// Match reports whether entity satisfies the condition. Missing attributes only
// satisfy "!=" or a comparison with nil.
func (c Condition) Match(entity domain.Entity) bool {
	raw, ok := entity.Get(c.Attribute)
	if !ok || raw == nil {
		isNil := !c.Quoted && (c.Value == "nil" || c.Value == "NULL")
		switch c.Operator {
		case "=":
			return isNil
		case "!=":
			return !isNil
		default:
			return false
		}
	}
	got := domain.Stringify(raw)

	if c.pattern != nil {
		return c.pattern.MatchString(got) == (c.Operator == "=")
	}

	cmp := compare(got, c.Value, !c.Quoted)
	switch c.Operator {
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	default:
		return cmp >= 0
	}
}

// Filter keeps the entities matching every plain condition, plus those matching
// any "or" condition.
func Filter(entities []domain.Entity, conditions []Condition) []domain.Entity {
	if len(conditions) == 0 {
		return entities
	}
	var and, or []Condition
	for _, c := range conditions {
		if c.Or {
			or = append(or, c)
		} else {
			and = append(and, c)
		}
	}

	out := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		if (len(and) > 0 && matchAll(e, and)) || matchAny(e, or) {
			out = append(out, e)
		}
	}
	return out
}

func matchAll(e domain.Entity, conditions []Condition) bool {
	for _, c := range conditions {
		if !c.Match(e) {
			return false
		}
	}
	return true
}

func matchAny(e domain.Entity, conditions []Condition) bool {
	for _, c := range conditions {
		if c.Match(e) {
			return true
		}
	}
	return false
}

// Sort orders entities in place by the query's sort_by attributes. Missing values
// sort last.
func Sort(entities []domain.Entity, q Query) {
	if len(q.SortBy) == 0 {
		return
	}
	sort.SliceStable(entities, func(i, j int) bool {
		for k, attr := range q.SortBy {
			a, aok := entities[i].Get(attr)
			b, bok := entities[j].Get(attr)
			aok, bok = aok && a != nil, bok && b != nil
			switch {
			case !aok && !bok:
				continue
			case !aok:
				return false
			case !bok:
				return true
			}
			cmp := compare(domain.Stringify(a), domain.Stringify(b), true)
			if cmp == 0 {
				continue
			}
			if q.Descending[k] {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// Page returns the window selected by offset and limit.
func Page(entities []domain.Entity, offset, limit int) []domain.Entity {
	if offset >= len(entities) {
		return []domain.Entity{}
	}
	end := len(entities)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return entities[offset:end]
}

// compare orders two values numerically when both parse as numbers and numeric
// comparison is allowed, otherwise lexically.
func compare(a, b string, numeric bool) int {
	if numeric {
		fa, errA := strconv.ParseFloat(a, 64)
		fb, errB := strconv.ParseFloat(b, 64)
		if errA == nil && errB == nil {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(a, b)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
