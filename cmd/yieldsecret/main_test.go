package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestRun_RoundTrip(t *testing.T) {
	getenv := env(map[string]string{"MKTYIELD_SECRET_KEY": "phrase"})

	var token, stderr bytes.Buffer
	require.Equal(t, 0, run(nil, strings.NewReader("db-password\n"), &token, &stderr, getenv), stderr.String())

	var plain bytes.Buffer
	require.Equal(t, 0, run([]string{"-decrypt"}, strings.NewReader(token.String()), &plain, &stderr, getenv), stderr.String())
	assert.Equal(t, "db-password\n", plain.String())
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		stdin    string
		env      map[string]string
		wantCode int
		wantErr  string
	}{
		{name: "missing passphrase", stdin: "x\n", env: map[string]string{}, wantCode: 1, wantErr: "MKTYIELD_SECRET_KEY is not set"},
		{name: "custom env var", args: []string{"-passphrase-env", "OTHER"}, stdin: "x\n", env: map[string]string{"MKTYIELD_SECRET_KEY": "p"}, wantCode: 1, wantErr: "OTHER is not set"},
		{name: "empty input", stdin: "", env: map[string]string{"MKTYIELD_SECRET_KEY": "p"}, wantCode: 1, wantErr: "no input"},
		{name: "bad token", args: []string{"-decrypt"}, stdin: "not-a-token\n", env: map[string]string{"MKTYIELD_SECRET_KEY": "p"}, wantCode: 1, wantErr: "malformed"},
		{name: "bad flag", args: []string{"-x"}, wantCode: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, strings.NewReader(tt.stdin), &stdout, &stderr, env(tt.env))
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, stderr.String(), tt.wantErr)
		})
	}
}
