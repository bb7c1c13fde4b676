package hierarchy

// IndexByCode returns the records keyed by code. When a code appears more
// than once the first record wins.
func IndexByCode(records []ConceptRecord) map[string]ConceptRecord {
	byCode := make(map[string]ConceptRecord, len(records))
	for _, rec := range records {
		if _, ok := byCode[rec.Code]; ok {
			continue
		}
		byCode[rec.Code] = rec
	}
	return byCode
}

// SelectRoots picks the anchors of the forest. If topConcept is present in
// records it is the only root. Otherwise a record is a root when it has no
// parents or when none of its parents has a record of its own. Roots are
// returned in record order without duplicates.
func SelectRoots(records []ConceptRecord, byCode map[string]ConceptRecord, topConcept string) []string {
	if topConcept != "" {
		if _, ok := byCode[topConcept]; ok {
			return []string{topConcept}
		}
	}

	var roots []string
	seen := make(map[string]bool)
	for _, rec := range records {
		if seen[rec.Code] || !isRootRecord(rec, byCode) {
			continue
		}
		seen[rec.Code] = true
		roots = append(roots, rec.Code)
	}
	return roots
}

func isRootRecord(rec ConceptRecord, byCode map[string]ConceptRecord) bool {
	for _, p := range rec.Parents {
		if _, ok := byCode[p]; ok {
			return false
		}
	}
	return true
}

// DanglingParents returns, per child code, the declared parents that have no
// record in byCode. Codes without dangling parents are omitted.
func DanglingParents(records []ConceptRecord, byCode map[string]ConceptRecord) map[string][]string {
	out := make(map[string][]string)
	for _, rec := range records {
		for _, p := range rec.Parents {
			if _, ok := byCode[p]; !ok {
				out[rec.Code] = append(out[rec.Code], p)
			}
		}
	}
	return out
}
