package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args    []string
		want    command
		wantErr string
	}{
		{args: []string{"up"}, want: command{name: "up"}},
		{args: []string{"down"}, want: command{name: "down"}},
		{args: []string{"status"}, want: command{name: "status"}},
		{args: []string{"steps", "-1"}, want: command{name: "steps", arg: -1}},
		{args: []string{"force", "2"}, want: command{name: "force", arg: 2}},
		{args: nil, wantErr: "no command"},
		{args: []string{"sideways"}, wantErr: "unknown command"},
		{args: []string{"up", "3"}, wantErr: "takes no arguments"},
		{args: []string{"steps"}, wantErr: "requires one integer"},
		{args: []string{"steps", "0"}, wantErr: "must not be 0"},
		{args: []string{"steps", "two"}, wantErr: "not an integer"},
		{args: []string{"force", "-1"}, wantErr: "must not be negative"},
	}

	for _, tt := range tests {
		got, err := parseCommand(tt.args)
		if tt.wantErr != "" {
			require.Error(t, err, "%v", tt.args)
			assert.Contains(t, err.Error(), tt.wantErr)
			continue
		}
		require.NoError(t, err, "%v", tt.args)
		assert.Equal(t, tt.want, got)
	}
}
