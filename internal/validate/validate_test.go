// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{":8080", false},
		{"127.0.0.1:0", false},
		{"[::1]:9000", false},
		{"8080", true},
		{"host:port", true},
		{":70000", true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			v := New()
			v.ListenAddr("listenAddr", tt.addr)
			assert.Equal(t, tt.wantErr, !v.IsValid(), "%v", v.Err())
		})
	}
}

func TestValidator_Ranges(t *testing.T) {
	v := New()
	v.Range("a", 5, 1, 10)
	v.Fraction("b", 0.5)
	v.DurationRange("c", time.Second, time.Millisecond, time.Minute)
	v.NonNegative("d", 0)
	require.True(t, v.IsValid())

	v.Range("a", 11, 1, 10)
	v.Fraction("b", 1.5)
	v.DurationRange("c", time.Hour, time.Millisecond, time.Minute)
	v.NonNegative("d", -1)
	assert.Len(t, v.Errors(), 4)
}

func TestValidator_Strings(t *testing.T) {
	v := New()
	v.NotEmpty("name", "  ")
	v.OneOf("backend", "etcd", []string{"memory", "sqlite"})
	v.OneOf("ok", "memory", []string{"memory", "sqlite"})

	err := v.Err()
	require.Error(t, err)
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors(), 2)
	assert.Equal(t, "name", verr.Errors()[0].Field)
	assert.Equal(t, "backend", verr.Errors()[1].Field)
	assert.Contains(t, err.Error(), "; ")
}

func TestValidator_Directory(t *testing.T) {
	base := t.TempDir()

	v := New()
	created := filepath.Join(base, "spool")
	v.Directory("spool", created, false)
	require.True(t, v.IsValid(), "%v", v.Err())
	info, err := os.Stat(created)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	v = New()
	v.Directory("missing", filepath.Join(base, "missing"), true)
	v.Directory("file", file, false)
	v.Directory("traversal", "../etc", false)
	v.Directory("empty", "", false)
	assert.Len(t, v.Errors(), 4)
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, lvl)

	_, err = ParseLogLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}
