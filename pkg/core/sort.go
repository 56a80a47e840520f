package core

import "sort"

// SortIntermediate orders deferred scans in place by retention time, then
// function index, then scan index within the function. The sort is stable
// and keeps the original pointers.
func SortIntermediate(scans []Deferred) {
	sort.SliceStable(scans, func(i, j int) bool {
		return intermediateLess(scans[i].Base(), scans[j].Base())
	})
}

// IsSortedIntermediate reports whether scans are already in import order.
func IsSortedIntermediate(scans []Deferred) bool {
	return sort.SliceIsSorted(scans, func(i, j int) bool {
		return intermediateLess(scans[i].Base(), scans[j].Base())
	})
}

func intermediateLess(a, b *IntermediateScan) bool {
	if a.header.RetentionTime != b.header.RetentionTime {
		return a.header.RetentionTime < b.header.RetentionTime
	}
	if a.header.FunctionIndex != b.header.FunctionIndex {
		return a.header.FunctionIndex < b.header.FunctionIndex
	}
	return a.header.ScanIndex < b.header.ScanIndex
}
