package ml

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStratifiedSplit(t *testing.T) {
	req := require.New(t)
	labels := make([]int, 100)
	for i := 60; i < 100; i++ {
		labels[i] = 1
	}

	train, test, err := StratifiedSplit(labels, 0.2, DefaultSeed)
	req.NoError(err)
	req.Len(test, 20)
	req.Len(train, 80)

	positives := 0
	for _, idx := range test {
		positives += labels[idx]
	}
	req.Equal(8, positives)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	for i, idx := range all {
		req.Equal(i, idx, "every row lands in exactly one partition")
	}

	again, _, err := StratifiedSplit(labels, 0.2, DefaultSeed)
	req.NoError(err)
	req.Equal(train, again)

	other, _, err := StratifiedSplit(labels, 0.2, DefaultSeed+1)
	req.NoError(err)
	req.NotEqual(train, other)
}

func TestStratifiedSplitDefaultsRatio(t *testing.T) {
	labels := []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	_, test, err := StratifiedSplit(labels, 1.5, DefaultSeed)
	require.NoError(t, err)
	require.Len(t, test, 2)
}

func TestStratifiedSplitErrors(t *testing.T) {
	_, _, err := StratifiedSplit(nil, 0.2, DefaultSeed)
	require.ErrorIs(t, err, ErrEmptyDataset)

	_, _, err = StratifiedSplit([]int{0, 1}, 0.2, DefaultSeed)
	require.ErrorContains(t, err, "empty partition")
}
