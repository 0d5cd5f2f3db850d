package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCLIArgs(t *testing.T) {
	opts, err := parseCLIArgs([]string{"-in", "t.json", "-out", "-", "-session", " s1 ", "-html", "r.html"})
	require.NoError(t, err)
	assert.Equal(t, "t.json", opts.Input)
	assert.Equal(t, "-", opts.Output)
	assert.Equal(t, "s1", opts.SessionID)
	assert.Equal(t, "r.html", opts.HTMLPath)
	assert.Equal(t, 500*time.Millisecond, opts.Debounce)
}

func TestParseCLIArgsPositionalInput(t *testing.T) {
	opts, err := parseCLIArgs([]string{"transcript.json"})
	require.NoError(t, err)
	assert.Equal(t, "transcript.json", opts.Input)
}

func TestParseCLIArgsErrors(t *testing.T) {
	cases := map[string][]string{
		"missing input":  {},
		"both sources":   {"-in", "a.json", "-store", "dir"},
		"watch store":    {"-watch", "-store", "dir"},
		"watch with out": {"-watch", "-in", "*.json", "-out", "x.json"},
		"unknown flag":   {"-nope"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseCLIArgs(args)
			assert.Error(t, err)
		})
	}
}
