package feature

import "fmt"

// ComparatorFor returns the built-in comparator for a descriptor kind.
func ComparatorFor(kind Kind) (Comparator, error) {
	switch kind {
	case KindVector:
		return VectorComparator{}, nil
	case KindScanContext:
		return ScanContextComparator{}, nil
	default:
		return nil, fmt.Errorf("feature: unknown kind %q", kind)
	}
}
