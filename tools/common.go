package tools

// NonEmpty keeps only the fields that actually carry a value, so partial
// profile updates never blank stored fields.
func NonEmpty(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case string:
			if t != "" {
				out[k] = t
			}
		case nil:
		default:
			out[k] = v
		}
	}
	return out
}
