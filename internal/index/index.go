package index

// EntryIndex defines the catalog operations used by the rest of daybook.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type EntryIndex interface {
	UpsertEntry(e EntryRow, body string) error
	DeleteEntry(path string) error
	IndexFile(path string, data []byte) error
	GetChecksum(path string) (string, error)
	ListEntries(limit, offset int, tag string) ([]EntryRow, int, error)
	TagCounts() ([]TagCount, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies EntryIndex at compile time.
var _ EntryIndex = (*DB)(nil)
