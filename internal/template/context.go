package template

// MergeContexts merges multiple contexts into a single context
// Later contexts override values from earlier contexts
func MergeContexts(contexts ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for _, ctx := range contexts {
		for key, value := range ctx {
			result[key] = value
		}
	}

	return result
}

// Fields exposes a struct-like set of named values under a single key, e.g.
// Fields("space", map[string]interface{}{"name": "Logs"}) is reachable as
// {{ .space.name }}.
func Fields(key string, values map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{key: values}
}
