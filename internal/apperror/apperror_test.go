package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledger/internal/apperror"
)

var errWidgetMissing = apperror.New(apperror.KindNotFound, "WIDGET", "WIDGET_NOT_FOUND", "Widget not found")

func TestError_Withf(t *testing.T) {
	detailed := errWidgetMissing.Withf("Widget %d not found", 7)

	assert.Equal(t, "Widget 7 not found", detailed.Error())
	assert.True(t, errors.Is(detailed, errWidgetMissing))
	assert.True(t, errors.Is(detailed.Withf("again"), errWidgetMissing))
	assert.False(t, errors.Is(errWidgetMissing, detailed))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperror.Kind
	}{
		{name: "Sentinel", err: errWidgetMissing, want: apperror.KindNotFound},
		{name: "Wrapped", err: fmt.Errorf("loading widget: %w", errWidgetMissing), want: apperror.KindNotFound},
		{name: "Plain", err: errors.New("boom"), want: apperror.KindSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperror.KindOf(tt.err))
		})
	}
}

func TestAs(t *testing.T) {
	e, ok := apperror.As(fmt.Errorf("wrap: %w", errWidgetMissing.Withf("detail")))
	require.True(t, ok)
	assert.Equal(t, "WIDGET_NOT_FOUND", e.Code)
	assert.Equal(t, "WIDGET", e.Domain)

	assert.True(t, apperror.IsBusiness(e))
	assert.False(t, apperror.IsBusiness(errors.New("db down")))
	assert.False(t, apperror.IsBusiness(nil))
}
