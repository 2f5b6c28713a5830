package models

import "path/filepath"

// Entry is one library archive found in the scanned directory.
type Entry struct {
	Name string // Filename, e.g. "commons-io-2.11.0.jar"
	Dir  string // Directory the entry was listed from
}

// Path returns the full path of the entry.
func (e Entry) Path() string {
	return filepath.Join(e.Dir, e.Name)
}

// SortedEntryList holds entries in ascending ordinal order of Name.
// Adjacency in this list is what the adjacent detection mode compares.
type SortedEntryList []Entry

// Names returns the filenames in list order.
func (l SortedEntryList) Names() []string {
	names := make([]string, len(l))
	for i, e := range l {
		names[i] = e.Name
	}
	return names
}

// IsSorted reports whether the list is in ascending ordinal order.
func (l SortedEntryList) IsSorted() bool {
	for i := 1; i < len(l); i++ {
		if l[i].Name < l[i-1].Name {
			return false
		}
	}
	return true
}
