package es_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rb2js/pkg/es"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  es.Level
	}{
		{"es5", es.ES5},
		{"5", es.ES5},
		{"ES6", es.ES2015},
		{"6", es.ES2015},
		{"2015", es.ES2015},
		{"es2022", es.ES2022},
		{"ES13", es.ES2022},
		{" 2025 ", es.ES2025},
		{"2009", es.ES5},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := es.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"es3", "2014", "2030", "latest", ""} {
		_, err := es.Parse(input)
		assert.ErrorIs(t, err, es.ErrUnknownLevel, input)
	}
}

func TestStringAndEdition(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ES5", es.ES5.String())
	assert.Equal(t, "ES2020", es.ES2020.String())
	assert.Equal(t, 5, es.ES5.Edition())
	assert.Equal(t, 6, es.ES2015.Edition())
	assert.Equal(t, 16, es.ES2025.Edition())
}

func TestLevels(t *testing.T) {
	t.Parallel()

	levels := es.Levels()

	assert.Equal(t, es.ES5, levels[0])
	assert.Equal(t, es.Latest, levels[len(levels)-1])
	assert.Len(t, levels, 12)

	for _, level := range levels {
		assert.True(t, level.Valid())
	}
}

func TestSupports(t *testing.T) {
	t.Parallel()

	assert.False(t, es.ES5.Supports(es.FeatureArrowFunctions))
	assert.True(t, es.ES2015.Supports(es.FeatureArrowFunctions))
	assert.False(t, es.ES2021.Supports(es.FeaturePrivateFields))
	assert.True(t, es.ES2022.Supports(es.FeaturePrivateFields))
	assert.False(t, es.Latest.Supports(es.Feature("teleportation")))
}

func TestTextMarshalling(t *testing.T) {
	t.Parallel()

	text, err := es.ES2019.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ES2019", string(text))

	var level es.Level

	require.NoError(t, level.UnmarshalText([]byte("es2017")))
	assert.Equal(t, es.ES2017, level)
	assert.Error(t, level.UnmarshalText([]byte("es1")))
}
