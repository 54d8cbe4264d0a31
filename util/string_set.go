package util

import "sort"

// StringSet is a set of names, such as interfaces to skip.
type StringSet struct {
	internal map[string]struct{}
}

func NewStringSet(items ...string) *StringSet {
	set := &StringSet{internal: make(map[string]struct{}, len(items))}
	set.AddAll(items)
	return set
}

func (set *StringSet) Add(str string) {
	set.internal[str] = struct{}{}
}

func (set *StringSet) AddAll(itemSlice []string) {
	for _, item := range itemSlice {
		set.internal[item] = struct{}{}
	}
}

func (set *StringSet) Has(str string) bool {
	_, ok := set.internal[str]
	return ok
}

func (set *StringSet) Remove(str string) {
	delete(set.internal, str)
}

// Sorted returns the members in ascending order.
func (set *StringSet) Sorted() []string {
	res := make([]string, 0, len(set.internal))
	for key := range set.internal {
		res = append(res, key)
	}
	sort.Strings(res)
	return res
}

func (set *StringSet) Size() int {
	return len(set.internal)
}
