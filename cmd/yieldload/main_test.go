package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    *flags
		wantErr bool
	}{
		{
			name: "required flags",
			args: []string{"-location", "LDN", "-date", "2024-03-15"},
			want: &flags{location: "LDN", date: "2024-03-15"},
		},
		{
			name: "all flags",
			args: []string{"-location", " NYC ", "-date", "2024-03-15", "-config", "c.yaml",
				"-document", "doc.xml", "-init-schema", "-dry-run"},
			want: &flags{location: "NYC", date: "2024-03-15", configFile: "c.yaml",
				document: "doc.xml", initSchema: true, dryRun: true},
		},
		{name: "missing date", args: []string{"-location", "LDN"}, wantErr: true},
		{name: "missing location", args: []string{"-date", "2024-03-15"}, wantErr: true},
		{name: "unknown flag", args: []string{"-verbose"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			got, err := parseFlags(tt.args, &stderr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_UsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-location", "LDN"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-location and -date are required")

	stderr.Reset()
	assert.Equal(t, 0, run([]string{"-h"}, &stdout, &stderr))
}
