package retrace

import "strings"

// IsSyntheticModel reports whether a model name is the synthetic
// placeholder some assistants write for internally generated entries,
// e.g. "<synthetic>". Comparison ignores case, whitespace and the
// angle-bracket wrapper.
func IsSyntheticModel(model string) bool {
	m := strings.TrimSpace(model)
	m = strings.TrimPrefix(m, "<")
	m = strings.TrimSuffix(m, ">")
	return strings.EqualFold(m, "synthetic")
}

// IsRealModel reports whether a model name identifies an actual model:
// non-empty and not a synthetic placeholder.
func IsRealModel(model string) bool {
	return model != "" && !IsSyntheticModel(model)
}
