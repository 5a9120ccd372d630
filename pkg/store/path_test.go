package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"root", "/", "/"},
		{"simple", "/docs", "/docs"},
		{"trailing slash", "/docs/", "/docs"},
		{"double slash", "//docs//notes", "/docs/notes"},
		{"dot segments", "/docs/./notes", "/docs/notes"},
		{"parent segments", "/docs/../etc", "/etc"},
		{"parent beyond root", "/../..", "/"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePath(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizePath_Invalid(t *testing.T) {
	for _, input := range []string{"", "relative", "docs/notes", "./docs"} {
		t.Run(input, func(t *testing.T) {
			_, err := NormalizePath(input)
			require.Error(t, err)
			se, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, ErrInvalidArgument, se.Code)
		})
	}
}

func TestSplitPath(t *testing.T) {
	cases := []struct {
		input      string
		wantParent string
		wantName   string
	}{
		{"/", "/", "/"},
		{"/docs", "/", "docs"},
		{"/docs/notes.txt", "/docs", "notes.txt"},
		{"/a/b/c", "/a/b", "c"},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			parent, name := SplitPath(tc.input)
			assert.Equal(t, tc.wantParent, parent)
			assert.Equal(t, tc.wantName, name)
		})
	}
}
