package collector

// RawFile is a single retrieved report, alive only between fetch and parse.
type RawFile struct {
	Path         string
	Raw          []byte
	Content      string
	LastModified int64 // ms since epoch
}

// IndexEntry is a resolved file reference from the remote index.
type IndexEntry struct {
	Path         string
	LastModified int64 // ms since epoch
}

// Index is the decoded directory index document.
type Index struct {
	Directories []*IndexNode `json:"directories"`
}

type IndexNode struct {
	Path        string       `json:"path"`
	Directories []*IndexNode `json:"directories"`
	Files       []*IndexFile `json:"files"`
}

type IndexFile struct {
	Path         *string `json:"path"`
	LastModified *string `json:"last_modified"`
}
