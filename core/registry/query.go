package registry

import "sort"

// FindByName returns the first entry named name.
func FindByName(entries []Entry, name string) (Entry, bool) {
	for _, entry := range entries {
		if entry.ScriptName == name {
			return entry, true
		}
	}
	return Entry{}, false
}

// Duplicates returns script names indexed more than once, sorted.
func Duplicates(entries []Entry) []string {
	counts := map[string]int{}
	for _, entry := range entries {
		counts[entry.ScriptName]++
	}
	duplicates := make([]string, 0)
	for name, count := range counts {
		if count > 1 {
			duplicates = append(duplicates, name)
		}
	}
	sort.Strings(duplicates)
	return duplicates
}

// Names returns the set of indexed script names.
func Names(entries []Entry) map[string]struct{} {
	names := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		names[entry.ScriptName] = struct{}{}
	}
	return names
}
