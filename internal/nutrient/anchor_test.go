package nutrient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAnchor_WireID(t *testing.T) {
	tests := []struct {
		anchor Anchor
		want   string
	}{
		{AnchorProtein, "protein"},
		{AnchorFat, "fat"},
		{AnchorTotalCarbs, "total_carbs"},
		{AnchorFiber, "fiber"},
		{AnchorSugar, "sugar"},
		{Anchor("Water"), ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.anchor), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.anchor.WireID())
		})
	}
}

func TestParseAnchor(t *testing.T) {
	tests := []struct {
		input string
		want  Anchor
	}{
		{"TotalCarbs", AnchorTotalCarbs},
		{"total_carbs", AnchorTotalCarbs},
		{"total carbs", AnchorTotalCarbs},
		{"Total-Carbs", AnchorTotalCarbs},
		{" protein ", AnchorProtein},
		{"FIBER", AnchorFiber},
		{"sugar", AnchorSugar},
		{"Fat", AnchorFat},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAnchor(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAnchor("water")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAnchor))
}

func TestAnchor_Next(t *testing.T) {
	assert.Equal(t, AnchorFat, AnchorProtein.Next())
	assert.Equal(t, AnchorProtein, AnchorSugar.Next())
	assert.Equal(t, DefaultAnchor, Anchor("bogus").Next())
}

func TestAnchor_YAML(t *testing.T) {
	var cfg struct {
		Anchor Anchor `yaml:"anchor"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("anchor: total_carbs\n"), &cfg))
	assert.Equal(t, AnchorTotalCarbs, cfg.Anchor)

	err := yaml.Unmarshal([]byte("anchor: water\n"), &cfg)
	assert.Error(t, err)
}
