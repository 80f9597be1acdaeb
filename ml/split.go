package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const (
	DefaultTestRatio = 0.2
	DefaultSeed      = 42
)

// StratifiedSplit partitions row indices so that each label keeps its share
// in both halves. The same labels, ratio and seed always give the same split.
func StratifiedSplit(labels []int, testRatio float64, seed int64) (train, test []int, err error) {
	if len(labels) == 0 {
		return nil, nil, ErrEmptyDataset
	}
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = DefaultTestRatio
	}

	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for label := range byClass {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	rnd := rand.New(rand.NewSource(seed))
	for _, label := range classes {
		indices := byClass[label]
		rnd.Shuffle(len(indices), func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })

		nTest := int(math.Round(float64(len(indices)) * testRatio))
		test = append(test, indices[:nTest]...)
		train = append(train, indices[nTest:]...)
	}

	if len(train) == 0 || len(test) == 0 {
		return nil, nil, fmt.Errorf("split of %d rows at ratio %.2f leaves an empty partition", len(labels), testRatio)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
