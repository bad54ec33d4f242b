package confirm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPromptAnswers(t *testing.T) {
	cases := []struct {
		in       string
		def      bool
		expected bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", false, false},
		{"\n", true, true},
	}
	for _, c := range cases {
		var out bytes.Buffer
		p := &Prompt{Reader: strings.NewReader(c.in), Writer: &out, Default: c.def}
		ok, err := p.Confirm(context.Background(), "Are you sure you want to clear all documents?")
		require.NoError(t, err, c.in)
		require.Equal(t, c.expected, ok, c.in)
		require.Contains(t, out.String(), "Are you sure you want to clear all documents?")
	}
}

func TestPromptHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Prompt{Reader: strings.NewReader("y\n"), Writer: &bytes.Buffer{}}
	ok, err := p.Confirm(ctx, "sure?")
	require.Error(t, err)
	require.False(t, ok)
}

func TestAlwaysAndFunc(t *testing.T) {
	ok, err := Always(true).Confirm(context.Background(), "x")
	require.NoError(t, err)
	require.True(t, ok)

	var asked string
	f := Func(func(_ context.Context, m string) (bool, error) {
		asked = m
		return false, nil
	})
	ok, err = f.Confirm(context.Background(), "clear?")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "clear?", asked)
}
