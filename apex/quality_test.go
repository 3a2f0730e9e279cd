package apex

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraloverlay/apex-go-sdk/core"
)

func TestKeywordCoverage(t *testing.T) {
	task := core.NewTask("", "article", "brief")
	task.Keywords = []string{"Go", "concurrency", "channels"}

	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"all present", "Go concurrency with channels", 1.0},
		{"case insensitive", "go CONCURRENCY and Channels", 1.0},
		{"partial", "Go is great", 1.0 / 3},
		{"none", "unrelated text", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeywordCoverage{}.Score(context.Background(), task, tt.content)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestKeywordCoverage_NoKeywords(t *testing.T) {
	task := core.NewTask("", "article", "brief")
	got, err := KeywordCoverage{}.Score(context.Background(), task, "anything")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestLengthBand(t *testing.T) {
	band := LengthBand{Min: 100, Max: 200}
	task := core.NewTask("", "article", "brief")

	inBand, err := band.Score(context.Background(), task, strings.Repeat("x", 150))
	require.NoError(t, err)
	assert.Equal(t, 1.0, inBand)

	short, err := band.Score(context.Background(), task, strings.Repeat("x", 50))
	require.NoError(t, err)
	assert.Equal(t, 0.5, short)

	long, err := band.Score(context.Background(), task, strings.Repeat("x", 300))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, long, 1e-9)

	wayTooLong, err := band.Score(context.Background(), task, strings.Repeat("x", 500))
	require.NoError(t, err)
	assert.Equal(t, 0.0, wayTooLong)
}

func TestWeightedQuality(t *testing.T) {
	task := core.NewTask("", "article", "brief")
	task.Keywords = []string{"present"}

	q := NewWeightedQuality().
		Add(KeywordCoverage{}, 3).
		Add(LengthBand{Min: 1000}, 1)

	// Keywords fully covered (1.0 x 3), length 10% of min (0.01 x 1)
	content := strings.Repeat("present ", 1) + strings.Repeat("x", 2)
	got, err := q.Score(context.Background(), task, content)
	require.NoError(t, err)

	lengthScore := float64(len(content)) / 1000
	want := (1.0*3 + lengthScore*1) / 4
	assert.InDelta(t, want, got, 1e-9)
}

func TestWeightedQuality_Empty(t *testing.T) {
	task := core.NewTask("", "article", "brief")
	_, err := NewWeightedQuality().Score(context.Background(), task, "content")
	assert.Error(t, err)
}
