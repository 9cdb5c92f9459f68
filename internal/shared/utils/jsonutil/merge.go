// Package jsonutil provides JSON document merge utilities.
package jsonutil

// DeepMerge merges patch onto base and returns the result. Nested object
// fields are merged key-by-key; scalar and array fields overwrite. A nil
// patch value means "no change", never "delete". Neither input map is
// mutated.
func DeepMerge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			continue
		}
		patchMap, patchIsMap := v.(map[string]any)
		if !patchIsMap {
			out[k] = v
			continue
		}
		baseMap, baseIsMap := out[k].(map[string]any)
		if !baseIsMap {
			out[k] = DeepMerge(nil, patchMap)
			continue
		}
		out[k] = DeepMerge(baseMap, patchMap)
	}
	return out
}
