package esgate_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aneshas/esgate"
	"github.com/relvacode/iso8601"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 10, 12, 20, 7, 22, 436271000, time.FixedZone("CEST", 2*60*60))

func TestShould_Inject_Timestamp_Into_Objects(t *testing.T) {
	got, err := esgate.Normalize([]byte(`{"amount": 10, "currency": "EUR"}`), now)

	assert.NoError(t, err)

	var obj map[string]any

	assert.NoError(t, json.Unmarshal(got, &obj))
	assert.Equal(t, "EUR", obj["currency"])
	assert.Equal(t, float64(10), obj["amount"])

	ts, err := iso8601.ParseString(obj[esgate.TimestampField].(string))

	assert.NoError(t, err)
	assert.True(t, now.Equal(ts))
}

func TestShould_Overwrite_Existing_Timestamp(t *testing.T) {
	got, err := esgate.Normalize([]byte(`{"timestamp":"yesterday"}`), now)

	assert.NoError(t, err)
	assert.Equal(t, `{"timestamp":"2024-10-12T18:07:22.436271Z"}`, string(got))
}

func TestShould_Keep_Object_Key_Order(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "timestamp appended",
			in:   `{"zeta": 1, "alpha": {"y": 1, "x": 2}}`,
			want: `{"zeta":1,"alpha":{"y":1,"x":2},"timestamp":"2024-10-12T18:07:22.436271Z"}`,
		},
		{
			name: "timestamp replaced in place",
			in:   `{"zeta":1,"timestamp":"old","b":"<&>"}`,
			want: `{"zeta":1,"timestamp":"2024-10-12T18:07:22.436271Z","b":"<&>"}`,
		},
		{
			name: "repeated key",
			in:   `{"a":1,"b":2,"a":3}`,
			want: `{"a":3,"b":2,"timestamp":"2024-10-12T18:07:22.436271Z"}`,
		},
		{
			name: "empty object",
			in:   ` { } `,
			want: `{"timestamp":"2024-10-12T18:07:22.436271Z"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := esgate.Normalize([]byte(tc.in), now)

			assert.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestShould_Pass_Non_Objects_Through(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: `[1, 2, {"a": "b"}]`, want: `[1,2,{"a":"b"}]`},
		{in: `"just a string"`, want: `"just a string"`},
		{in: `42`, want: `42`},
		{in: ` true `, want: `true`},
		{in: `null`, want: `null`},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := esgate.Normalize([]byte(tc.in), now)

			assert.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestShould_Preserve_Numbers_And_Html(t *testing.T) {
	got, err := esgate.Normalize([]byte(`[12345678901234567890, 1.50, "<b>&</b>"]`), now)

	assert.NoError(t, err)
	assert.Equal(t, `[12345678901234567890,1.50,"<b>&</b>"]`, string(got))
}

func TestShould_Reject_Invalid_Json(t *testing.T) {
	for _, in := range []string{``, `{`, `{"a":1} {"b":2}`, `not json`} {
		_, err := esgate.Normalize([]byte(in), now)

		assert.Error(t, err, in)
	}
}
