package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{
			name: "quality clamped to lower bound",
			in:   Options{Method: MethodTraditional, Quality: 5},
			want: Options{Method: MethodTraditional, Quality: 10},
		},
		{
			name: "quality clamped to upper bound",
			in:   Options{Method: MethodML, Quality: 150},
			want: Options{Method: MethodML, Quality: 100},
		},
		{
			name: "negative size target treated as absent",
			in:   Options{Method: MethodHybrid, Quality: 80, TargetSizeKB: -3},
			want: Options{Method: MethodHybrid, Quality: 80, TargetSizeKB: 0},
		},
		{
			name: "empty method defaults to traditional",
			in:   Options{Quality: 80},
			want: Options{Method: MethodTraditional, Quality: 80},
		},
		{
			name: "valid options unchanged",
			in:   Options{Method: MethodHybrid, Quality: 85, TargetSizeKB: 200, EnableAnalysis: true},
			want: Options{Method: MethodHybrid, Quality: 85, TargetSizeKB: 200, EnableAnalysis: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestValidMethod(t *testing.T) {
	assert.True(t, ValidMethod(MethodTraditional))
	assert.True(t, ValidMethod(MethodML))
	assert.True(t, ValidMethod(MethodHybrid))
	assert.False(t, ValidMethod("zstd"))
	assert.False(t, ValidMethod(""))
}

func TestSetOptionsRejectsUnknownMethod(t *testing.T) {
	ctrl, _ := newTestController(&fakeService{}, newMemorySink())

	err := ctrl.SetOptions(Options{Method: "brotli", Quality: 80})
	assert.Error(t, err)

	// The store is untouched by the rejected update.
	assert.Equal(t, MethodTraditional, ctrl.Options().Method)
}
