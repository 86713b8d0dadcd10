// Package diagnostics collects per-run counters for operator review:
// raw fields with no destination in the resource model, unknown licenses,
// unmapped vocabulary values and tolerated per-record failures.
package diagnostics

import (
	"fmt"
	"sort"
	"sync"
)

// Categories used by the source mappers.
const (
	CategoryDropped        = "dropped"
	CategoryUnknownLicense = "unknown_license"
	CategoryFetchFailure   = "fetch_failure"
	CategoryMediaType      = "media_type"
	CategoryAuthor         = "author_resolution"
)

// UnmappedValueCategory names the counter for a vocabulary's unmapped values.
func UnmappedValueCategory(vocabulary string) string {
	return "unmapped_value:" + vocabulary
}

type entry struct {
	count   int
	example string
}

// Recorder accumulates diagnostics for one source during one run. It is safe
// for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	source   string
	unmapped map[string]*entry
	counters map[string]map[string]*entry
}

// NewRecorder creates an empty recorder for source.
func NewRecorder(source string) *Recorder {
	return &Recorder{
		source:   source,
		unmapped: make(map[string]*entry),
		counters: make(map[string]map[string]*entry),
	}
}

// Source returns the name the recorder was created for.
func (r *Recorder) Source() string {
	return r.source
}

// Unmapped records a raw field that was present but not consumed. The first
// value seen is kept as an example.
func (r *Recorder) Unmapped(field string, example any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.unmapped[field]
	if !ok {
		e = &entry{example: exampleString(example)}
		r.unmapped[field] = e
	}
	e.count++
}

// Count increments the counter for value within category.
func (r *Recorder) Count(category, value string) {
	r.CountExample(category, value, "")
}

// CountExample increments a counter and keeps the first non-empty example.
func (r *Recorder) CountExample(category, value, example string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, ok := r.counters[category]
	if !ok {
		values = make(map[string]*entry)
		r.counters[category] = values
	}
	e, ok := values[value]
	if !ok {
		e = &entry{}
		values[value] = e
	}
	if e.example == "" {
		e.example = example
	}
	e.count++
}

// Total returns the sum of all counts in category.
func (r *Recorder) Total(category string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, e := range r.counters[category] {
		total += e.count
	}
	return total
}

// Merge adds every count from other into r.
func (r *Recorder) Merge(other *Recorder) {
	if other == nil || other == r {
		return
	}
	other.mu.Lock()
	defer other.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	for field, oe := range other.unmapped {
		e, ok := r.unmapped[field]
		if !ok {
			e = &entry{example: oe.example}
			r.unmapped[field] = e
		}
		e.count += oe.count
	}
	for category, values := range other.counters {
		mine, ok := r.counters[category]
		if !ok {
			mine = make(map[string]*entry)
			r.counters[category] = mine
		}
		for value, oe := range values {
			e, ok := mine[value]
			if !ok {
				e = &entry{example: oe.example}
				mine[value] = e
			}
			e.count += oe.count
		}
	}
}

// Item is one reported key, most common first within its list.
type Item struct {
	Key     string `yaml:"key"`
	Count   int    `yaml:"count"`
	Example string `yaml:"example,omitempty"`
}

// Category is one counter group of a report.
type Category struct {
	Name  string `yaml:"name"`
	Total int    `yaml:"total"`
	Items []Item `yaml:"items"`
}

// Report is a sorted snapshot of a recorder.
type Report struct {
	Source     string     `yaml:"source"`
	Unmapped   []Item     `yaml:"unmapped_fields,omitempty"`
	Categories []Category `yaml:"categories,omitempty"`
}

// Empty reports whether nothing was recorded.
func (rep Report) Empty() bool {
	return len(rep.Unmapped) == 0 && len(rep.Categories) == 0
}

// Report snapshots the recorder with every list sorted by descending count,
// ties broken by key.
func (r *Recorder) Report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := Report{Source: r.source, Unmapped: sortedItems(r.unmapped)}

	names := make([]string, 0, len(r.counters))
	for name := range r.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		items := sortedItems(r.counters[name])
		total := 0
		for _, it := range items {
			total += it.Count
		}
		rep.Categories = append(rep.Categories, Category{Name: name, Total: total, Items: items})
	}
	return rep
}

func sortedItems(m map[string]*entry) []Item {
	items := make([]Item, 0, len(m))
	for k, e := range m {
		items = append(items, Item{Key: k, Count: e.count, Example: e.example})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Key < items[j].Key
	})
	return items
}

func exampleString(v any) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprintf("%v", v)
	}
	const maxExample = 120
	if r := []rune(s); len(r) > maxExample {
		s = string(r[:maxExample]) + "..."
	}
	return s
}
