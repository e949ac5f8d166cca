// Package plugins bundles ready-made, chrome-less editor plugins. Each one
// implements a subset of the imager capability set; toolbar UI around them is
// the host's business.
package plugins

// floatFrom reads a float configuration value with a fallback. Numbers
// arrive as float64 from decoded yaml/json but as int from literal Go maps;
// both are accepted.
func floatFrom(cfg map[string]any, key string, fallback float64) float64 {
	if cfg == nil {
		return fallback
	}
	switch v := cfg[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

// stringFrom reads a string configuration value with a fallback.
func stringFrom(cfg map[string]any, key, fallback string) string {
	if cfg == nil {
		return fallback
	}
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return fallback
}
