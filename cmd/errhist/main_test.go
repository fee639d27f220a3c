package main

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meigma/errhist"
	"github.com/meigma/errhist/sgio"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "nil error",
			err:  nil,
			want: exitOK,
		},
		{
			name: "usage error",
			err:  fmt.Errorf("%w: unknown flag", errUsage),
			want: exitUsage,
		},
		{
			name: "sense error carries the sense key",
			err: &errhist.CommandError{
				Kind: errhist.OutcomeSenseError,
				Key:  errhist.SenseNotReady,
			},
			want: 2,
		},
		{
			name: "medium error",
			err: &errhist.CommandError{
				Kind: errhist.OutcomeSenseError,
				Key:  errhist.SenseMediumError,
			},
			want: 3,
		},
		{
			name: "sense error wrapped in directory failure",
			err: fmt.Errorf("%w: %w", errhist.ErrDirectoryRead, &errhist.CommandError{
				Kind: errhist.OutcomeSenseError,
				Key:  errhist.SenseHardwareError,
			}),
			want: 4,
		},
		{
			name: "transport error is an OS failure",
			err: &errhist.CommandError{
				Kind:  errhist.OutcomeTransportError,
				Cause: errors.New("ioctl failed"),
			},
			want: exitFile,
		},
		{
			name: "not an sg device",
			err:  fmt.Errorf("%w: /dev/null", sgio.ErrNotSG),
			want: exitFile,
		},
		{
			name: "missing file",
			err:  fmt.Errorf("open bundle: %w", fs.ErrNotExist),
			want: exitFile,
		},
		{
			name: "permission denied",
			err:  fs.ErrPermission,
			want: exitFile,
		},
		{
			name: "path error",
			err:  &fs.PathError{Op: "open", Path: "/dev/sg0", Err: errors.New("device busy")},
			want: exitFile,
		},
		{
			name: "anything else",
			err:  errors.New("unclassified"),
			want: exitOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestExactArgs(t *testing.T) {
	t.Parallel()

	check := exactArgs(1)

	assert.NoError(t, check(nil, []string{"one"}))

	err := check(nil, nil)
	assert.ErrorIs(t, err, errUsage)

	err = check(nil, []string{"one", "two"})
	assert.ErrorIs(t, err, errUsage)
}
