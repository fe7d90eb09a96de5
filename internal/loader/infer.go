// SPDX-License-Identifier: MPL-2.0

package loader

// InferNewKeys returns the names in after that are absent from before, in the
// order they appear in after.
func InferNewKeys(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, k := range before {
		seen[k] = struct{}{}
	}
	var added []string
	for _, k := range after {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		added = append(added, k)
	}
	return added
}

func firstNewKey(before, after []string) string {
	if keys := InferNewKeys(before, after); len(keys) > 0 {
		return keys[0]
	}
	return ""
}
