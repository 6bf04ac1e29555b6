package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cvindex/internal/cli"
	"github.com/rshade/cvindex/pkg/version"
)

func TestMainComponents(t *testing.T) {
	t.Run("version available", func(t *testing.T) {
		assert.NotEmpty(t, version.GetVersion())
	})

	t.Run("cli root command", func(t *testing.T) {
		root := cli.NewRootCmd(version.GetVersion())
		require.NotNil(t, root)
		assert.Equal(t, "cvindex", root.Use)
	})
}

func TestExtractExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil error", err: nil, want: 0},
		{name: "unhealthy", err: &cli.ExitError{ExitCode: cli.ExitUnhealthy, Reason: "down"}, want: 2},
		{name: "threshold", err: &cli.ExitError{ExitCode: cli.ExitThreshold, Reason: "too high"}, want: 3},
		{
			name: "wrapped exit error",
			err:  errors.Join(errors.New("outer"), &cli.ExitError{ExitCode: 7, Reason: "wrapped"}),
			want: 7,
		},
		{name: "generic error", err: errors.New("boom"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractExitCode(tt.err))
		})
	}
}
