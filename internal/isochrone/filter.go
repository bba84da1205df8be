package isochrone

// Metallicity returns the rows whose MH equals m exactly.
func Metallicity(t *Table, m float64) (*Table, error) {
	return t.Where(ColMetallicity, func(v float64) bool { return v == m })
}

// Age returns the rows whose Age equals a exactly.
func Age(t *Table, a float64) (*Table, error) {
	return t.Where(ColAge, func(v float64) bool { return v == a })
}

// Metallicities returns the distinct MH values in first-seen order.
func Metallicities(t *Table) ([]float64, error) {
	return distinct(t, ColMetallicity)
}

// Ages returns the distinct Age values in first-seen order.
func Ages(t *Table) ([]float64, error) {
	return distinct(t, ColAge)
}

func distinct(t *Table, name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}

	seen := make(map[float64]struct{})
	var out []float64
	for _, v := range col {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
