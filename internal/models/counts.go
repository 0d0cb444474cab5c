package models

import "sort"

// Counts is a label -> row count tally reported by a stage.
type Counts map[string]int

// Add increments label by one.
func (c Counts) Add(label string) {
	c[label]++
}

// Merge adds every count of other into c.
func (c Counts) Merge(other Counts) {
	for k, v := range other {
		c[k] += v
	}
}

// Labels returns the labels in sorted order.
func (c Counts) Labels() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
