package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonMarshal(v any) ([]byte, error) { return json.Marshal(v) }

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-03-05T00:00:00.000",
		"2024-03-05T00:00:00",
		"2024-03-05T00:00:00Z",
		"2024-03-05",
		"20240305",
		"03/05/2024",
		"2024/03/05",
	} {
		t.Run(in, func(t *testing.T) {
			d, err := ParseDate(in)
			require.NoError(t, err)
			assert.True(t, want.Equal(d.Time), "got %v", d.Time)
		})
	}

	d, err := ParseDate("  ")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("next tuesday")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`"2024-01-15T00:00:00.000"`), &d))
	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-01-15T00:00:00"`, string(out))

	out, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	assert.Error(t, json.Unmarshal([]byte(`20240115`), &d))
}

func TestAmount_JSON(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{`1250.5`, 1250.5},
		{`"1,250.50"`, 1250.5},
		{`"$300"`, 300},
		{`""`, 0},
		{`null`, 0},
	}
	for _, tt := range tests {
		var a Amount
		require.NoError(t, json.Unmarshal([]byte(tt.in), &a), tt.in)
		assert.InDelta(t, float64(tt.want), float64(a), 0.001, tt.in)
	}

	var a Amount
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &a))
	assert.Error(t, json.Unmarshal([]byte(`true`), &a))
}

func TestRow_Accessors(t *testing.T) {
	var r Row
	require.NoError(t, json.Unmarshal([]byte(`{
		"a":"  ","b":"x","n":42,"flag":true,"obj":{"k":1},"nil":null,
		"d":"01/02/2024","bad":"soon","amt":"$1,000"
	}`), &r))

	assert.Equal(t, "x", r.Str("missing", "a", "b"))
	assert.Equal(t, "42", r.Str("n"))
	assert.Equal(t, "true", r.Str("flag"))
	assert.Equal(t, "", r.Str("obj", "nil"))

	assert.Equal(t, 2024, r.Date("bad", "d").Year())
	assert.True(t, r.Date("bad").IsZero())

	assert.Equal(t, Amount(1000), r.Amount("b", "amt"))
	assert.Equal(t, Amount(42), r.Amount("n"))
	assert.Equal(t, Amount(0), r.Amount("missing"))

	assert.JSONEq(t, `{"k":1}`, string(r.Raw("obj")))
}
