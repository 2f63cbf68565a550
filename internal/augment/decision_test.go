package augment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecision_Metadata(t *testing.T) {
	tests := []struct {
		name string
		d    Decision
		want string
	}{
		{"not applied", Decision{}, `{"applied":false}`},
		{"applied without echo", Decision{Applied: true, Name: "scale"}, `{"applied":true,"name":"scale"}`},
		{"applied with echo", Decision{Applied: true, Name: "scale", Params: Params{"scale": 0.9}}, `{"applied":true,"name":"scale","params":{"scale":0.9}}`},
		{"applied with empty echo", Decision{Applied: true, Name: "noop", Params: Params{}}, `{"applied":true,"name":"noop","params":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.d)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestDecision_UnmarshalJSON(t *testing.T) {
	var d Decision
	require.NoError(t, json.Unmarshal([]byte(`{"applied":true,"name":"shear","params":{"kx":0.1}}`), &d))
	assert.True(t, d.Applied)
	assert.Equal(t, "shear", d.Name)
	assert.Equal(t, 0.1, d.Params["kx"])

	require.NoError(t, json.Unmarshal([]byte(`{"applied":false}`), &d))
	assert.Equal(t, Decision{}, d)
}

func TestParams_Accessors(t *testing.T) {
	p := Params{"f": 1.5, "i": 3, "u": uint64(9), "s": "x", "fs": []float64{1, 2}}

	f, err := p.Float("f")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	f, err = p.Float("i")
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	i, err := p.Int("i")
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	_, err = p.Int("f")
	assert.Error(t, err)

	u, err := p.Uint64("u")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), u)

	s, err := p.String("s")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	fs, err := p.Floats("fs")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, fs)

	_, err = p.Float("missing")
	assert.ErrorContains(t, err, `missing parameter "missing"`)
	_, err = p.String("f")
	assert.Error(t, err)
}

func TestParams_AcceptDecodedJSON(t *testing.T) {
	var d Decision
	require.NoError(t, json.Unmarshal([]byte(
		`{"applied":true,"name":"n","params":{"seed":9007199254740991,"xs":[0.5,-1,2]}}`), &d))

	u, err := d.Params.Uint64("seed")
	require.NoError(t, err)
	assert.Equal(t, uint64(MaxSeed-1), u)

	xs, err := d.Params.Floats("xs")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1, 2}, xs)

	for _, bad := range []any{-1.0, 1.5, float64(MaxSeed), "7"} {
		_, err := Params{"seed": bad}.Uint64("seed")
		assert.Error(t, err, "%v", bad)
	}
	_, err = Params{"xs": []any{1.0, "two"}}.Floats("xs")
	assert.ErrorContains(t, err, "element 1")
}

func TestSampleSeed_Range(t *testing.T) {
	rng := NewSource(3, 4)
	for i := 0; i < 1000; i++ {
		s := SampleSeed(rng)
		require.Less(t, s, uint64(MaxSeed))
		assert.Equal(t, s, uint64(float64(s)))
	}
}
