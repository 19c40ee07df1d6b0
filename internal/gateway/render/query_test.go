package render

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
)

func zones() []domain.Entity {
	return []domain.Entity{
		{ID: "1", Type: "zone", Attributes: map[string]any{"name": "default", "servers": float64(3)}},
		{ID: "2", Type: "zone", Attributes: map[string]any{"name": "east-1", "servers": float64(10)}},
		{ID: "3", Type: "zone", Attributes: map[string]any{"name": "east-2", "servers": float64(2)}},
		{ID: "4", Type: "zone", Attributes: map[string]any{"name": "west", "description": "backup"}},
	}
}

func ids(entities []domain.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Condition
		wantErr bool
	}{
		{name: "equal", raw: "name=default", want: Condition{Attribute: "name", Operator: "=", Value: "default"}},
		{name: "not equal", raw: "name!=default", want: Condition{Attribute: "name", Operator: "!=", Value: "default"}},
		{name: "less or equal", raw: "servers<=3", want: Condition{Attribute: "servers", Operator: "<=", Value: "3"}},
		{name: "greater", raw: "servers>3", want: Condition{Attribute: "servers", Operator: ">", Value: "3"}},
		{
			name: "single quoted",
			raw:  "name='east 1'",
			want: Condition{Attribute: "name", Operator: "=", Value: "east 1", Quoted: true},
		},
		{
			name: "double quoted",
			raw:  `name="a=b"`,
			want: Condition{Attribute: "name", Operator: "=", Value: "a=b", Quoted: true},
		},
		{name: "or prefix", raw: "or name=west", want: Condition{Attribute: "name", Operator: "=", Value: "west", Or: true}},
		{name: "no operator", raw: "name", wantErr: true},
		{name: "no attribute", raw: "=x", wantErr: true},
		{name: "wildcard with ordering", raw: "name>east%", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCondition(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Attribute, got.Attribute)
			assert.Equal(t, tt.want.Operator, got.Operator)
			assert.Equal(t, tt.want.Value, got.Value)
			assert.Equal(t, tt.want.Quoted, got.Quoted)
			assert.Equal(t, tt.want.Or, got.Or)
		})
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		filters []string
		want    []string
	}{
		{name: "none", filters: nil, want: []string{"1", "2", "3", "4"}},
		{name: "equal", filters: []string{"name=west"}, want: []string{"4"}},
		{name: "wildcard", filters: []string{"name=east%"}, want: []string{"2", "3"}},
		{name: "negated wildcard", filters: []string{"name!=east%"}, want: []string{"1", "4"}},
		{name: "numeric", filters: []string{"servers>=3"}, want: []string{"1", "2"}},
		{name: "quoted compares as string", filters: []string{"servers>='3'"}, want: []string{"1"}},
		{name: "and", filters: []string{"name=east%", "servers<5"}, want: []string{"3"}},
		{name: "or group", filters: []string{"name=default", "or name=west"}, want: []string{"1", "4"}},
		{name: "nil", filters: []string{"description=nil"}, want: []string{"1", "2", "3"}},
		{name: "missing attribute not equal", filters: []string{"description!=backup"}, want: []string{"1", "2", "3"}},
		{name: "id", filters: []string{"id>2"}, want: []string{"3", "4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conditions := make([]Condition, 0, len(tt.filters))
			for _, f := range tt.filters {
				c, err := ParseCondition(f)
				require.NoError(t, err)
				conditions = append(conditions, c)
			}
			assert.Equal(t, tt.want, ids(Filter(zones(), conditions)))
		})
	}
}

func TestSortAndPage(t *testing.T) {
	q, err := ParseQuery(url.Values{"sort_by": {"servers"}, "sort_order": {"desc"}})
	require.NoError(t, err)

	entities := zones()
	Sort(entities, q)
	assert.Equal(t, []string{"2", "1", "3", "4"}, ids(entities))

	assert.Equal(t, []string{"1", "3"}, ids(Page(entities, 1, 2)))
	assert.Equal(t, []string{}, ids(Page(entities, 10, 2)))
	assert.Equal(t, []string{"4"}, ids(Page(entities, 3, 10)))
}

func TestParseQuery(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		q, err := ParseQuery(url.Values{})
		require.NoError(t, err)
		assert.False(t, q.Expand)
		assert.Equal(t, 0, q.Offset)
		assert.Equal(t, DefaultLimit, q.Limit)
	})

	t.Run("everything", func(t *testing.T) {
		q, err := ParseQuery(url.Values{
			"expand":     {"resources"},
			"attributes": {"name, description"},
			"filter[]":   {"name=a", "or name=b"},
			"sort_by":    {"name,id"},
			"sort_order": {"asc"},
			"offset":     {"5"},
			"limit":      {"10"},
		})
		require.NoError(t, err)
		assert.True(t, q.Expand)
		assert.Equal(t, []string{"name", "description"}, q.Attributes)
		assert.Len(t, q.Conditions, 2)
		assert.Equal(t, []bool{false, false}, q.Descending)
		assert.Equal(t, 5, q.Offset)
		assert.Equal(t, 10, q.Limit)
	})

	for _, values := range []url.Values{
		{"offset": {"-1"}},
		{"limit": {"0"}},
		{"limit": {"999999"}},
		{"limit": {"10001"}},
		{"sort_by": {"name"}, "sort_order": {"sideways"}},
		{"filter[]": {"broken"}},
	} {
		_, err := ParseQuery(values)
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest), values.Encode())
	}
}
