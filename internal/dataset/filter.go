package dataset

// Months returns the distinct month keys in order of first appearance.
// Rows without a date belong to no month.
func (t *Table) Months() []string {
	var months []string
	seen := make(map[string]bool)
	for i := 0; i < t.Len(); i++ {
		key := t.Rows[i].Month()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		months = append(months, key)
	}
	return months
}

// LatestMonth returns the last month of Months, or "" for a table without
// dated rows.
func (t *Table) LatestMonth() string {
	months := t.Months()
	if len(months) == 0 {
		return ""
	}
	return months[len(months)-1]
}

// HasMonth reports whether any row falls in month key.
func (t *Table) HasMonth(key string) bool {
	for i := 0; i < t.Len(); i++ {
		if t.Rows[i].Month() == key {
			return true
		}
	}
	return false
}

// FilterMonth returns the rows of month key in their original order.
func (t *Table) FilterMonth(key string) *Table {
	out := t.derive()
	if key == "" {
		return out
	}
	for i := 0; i < t.Len(); i++ {
		if t.Rows[i].Month() == key {
			out.Rows = append(out.Rows, t.Rows[i])
		}
	}
	return out
}
