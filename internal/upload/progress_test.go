package upload_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-Ruco/pressflow/internal/upload"
)

func TestSyntheticProgress_CapsAtNinetyFive(t *testing.T) {
	var mu sync.Mutex
	var ticks []int

	p := upload.StartSyntheticProgress(time.Millisecond, 40, func(v int) {
		mu.Lock()
		ticks = append(ticks, v)
		mu.Unlock()
	})
	defer p.Abort()

	require.Eventually(t, func() bool {
		return p.Current() == 95
	}, time.Second, time.Millisecond)

	// Let a few more ticks pass: the value must not move past the cap.
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 95, p.Current())

	mu.Lock()
	defer mu.Unlock()
	for _, v := range ticks {
		assert.LessOrEqual(t, v, 95)
	}
}

func TestSyntheticProgress_FinishJumpsToHundred(t *testing.T) {
	p := upload.StartSyntheticProgress(time.Millisecond, 10, nil)

	var final int
	p.Finish(func(v int) { final = v })

	assert.Equal(t, 100, final)
	assert.Equal(t, 100, p.Current())
}

func TestSyntheticProgress_AbortStopsWithoutCompleting(t *testing.T) {
	p := upload.StartSyntheticProgress(time.Millisecond, 10, nil)

	require.Eventually(t, func() bool {
		return p.Current() > 0
	}, time.Second, time.Millisecond)

	p.Abort()
	v := p.Current()
	assert.Less(t, v, 100)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, v, p.Current())
}
