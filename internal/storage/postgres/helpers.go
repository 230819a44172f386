package postgres

// derefString safely dereferences a string pointer, returning empty string if nil
func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// nullIfEmpty maps empty strings to NULL so optional text columns stay
// NULL instead of collecting empty strings.
func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
