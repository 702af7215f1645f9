package signals

import (
	"errors"
	"testing"

	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep(t *testing.T) {
	s := Step(150, 0.1)

	assert.Equal(t, 0.0, s(0))
	assert.Equal(t, 0.0, s(0.0999))
	assert.Equal(t, 150.0, s(0.1))
	assert.Equal(t, 150.0, s(3))
}

func TestSquare(t *testing.T) {
	s := Square(1, 12, 0, 0.25)

	assert.Equal(t, 12.0, s(0))
	assert.Equal(t, 12.0, s(0.2))
	assert.Equal(t, 0.0, s(0.25))
	assert.Equal(t, 0.0, s(0.9))
	assert.Equal(t, 12.0, s(1.1))
}

func TestTriangle(t *testing.T) {
	s := Triangle(1, 10, -10)

	assert.InDelta(t, -10, s(0), 1e-12)
	assert.InDelta(t, 0, s(0.25), 1e-12)
	assert.InDelta(t, 10, s(0.5), 1e-12)
	assert.InDelta(t, 0, s(0.75), 1e-12)
}

func TestSine(t *testing.T) {
	s := Sine(2, 3, 1)

	assert.InDelta(t, 1, s(0), 1e-12)
	assert.InDelta(t, 4, s(0.125), 1e-12)
	assert.InDelta(t, -2, s(0.375), 1e-12)
}

func TestSignalsAreIdempotent(t *testing.T) {
	for _, s := range []Signal{
		Constant(3),
		Step(1, 0),
		Square(0.35, 300, 0, 0.5),
		Triangle(5, 1, 0),
		Sine(50, 1, 0),
	} {
		assert.Equal(t, s(0), s(0))
		assert.Equal(t, s(1.234), s(1.234))
	}
}

func TestSpecBuild(t *testing.T) {
	sig, err := Spec{Kind: "square", Freq: 0.35, High: 12}.Build()
	require.NoError(t, err)
	assert.Equal(t, 12.0, sig(0))
	assert.Equal(t, 0.0, sig(0.5/0.35+0.01))

	sig, err = Spec{Kind: "step", Value: 150, Delay: 0.1}.Build()
	require.NoError(t, err)
	assert.Equal(t, 150.0, sig(0.2))
}

func TestSpecBuildErrors(t *testing.T) {
	_, err := Spec{}.Build()
	assert.True(t, errors.Is(err, dynamo.ErrMissingInput))

	_, err = Spec{Kind: "sine", Freq: 0}.Build()
	assert.True(t, errors.Is(err, dynamo.ErrParameterBounds))

	_, err = Spec{Kind: "square", Freq: 1, Duty: 1.5}.Build()
	assert.True(t, errors.Is(err, dynamo.ErrParameterBounds))

	_, err = Spec{Kind: "sawtooth"}.Build()
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Spec
	}{
		{"constant:12", Spec{Kind: "constant", Value: 12}},
		{"step:150,0.1", Spec{Kind: "step", Value: 150, Delay: 0.1}},
		{"step:24", Spec{Kind: "step", Value: 24}},
		{"square:0.35,12,0,0.5", Spec{Kind: "square", Freq: 0.35, High: 12, Duty: 0.5}},
		{"square:0.35, 300, 0", Spec{Kind: "square", Freq: 0.35, High: 300}},
		{"triangle:0.7,12,0", Spec{Kind: "triangle", Freq: 0.7, High: 12}},
		{"sine:0.7,6,6", Spec{Kind: "sine", Freq: 0.7, Amp: 6, Offset: 6}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"sawtooth:1",
		"constant",
		"constant:a",
		"triangle:1,2",
		"sine:1,2,3,4",
	} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}
