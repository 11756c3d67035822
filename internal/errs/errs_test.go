package errs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "usage", err: &UsageError{Message: "missing run id"}, want: ExitUsage},
		{name: "fetch wrapped", err: errors.Wrap(NewFetchError("modules", errors.New("boom")), "html"), want: ExitFetch},
		{name: "empty result", err: &EmptyResultError{RunID: "r1"}, want: ExitEmptyResult},
		{name: "render", err: &RenderError{Err: errors.New("bad delta")}, want: ExitRender},
		{name: "persist", err: &PersistError{Path: "/tmp/x", Err: errors.New("disk full")}, want: ExitPersist},
		{name: "delivery is not an exit condition", err: &DeliveryError{Target: "slack", Err: errors.New("down")}, want: ExitUnknown},
		{name: "plain", err: errors.New("other"), want: ExitUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestNewFetchErrorNil(t *testing.T) {
	assert.NoError(t, NewFetchError("modules", nil))
}
