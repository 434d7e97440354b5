package parser

// Assignment is one validated bridge pool assignment report.
type Assignment struct {
	Path      string // source path, not part of any digest
	FileSHA   string
	Published int64 // ms since epoch, from the header line
	Header    string
	Lines     []*LineEntry
}

// LineEntry is a single bridge's distribution record.
type LineEntry struct {
	SHA                string
	Fingerprint        string
	DistributionMethod string
	Transport          *string
	IP                 *string
	Blocklist          *string
	Distributed        *bool
	State              *string
	Bandwidth          *string
	Ratio              *float64
}

// EntryCount returns the total number of line entries across assignments.
func EntryCount(assignments []*Assignment) int {
	n := 0
	for _, a := range assignments {
		n += len(a.Lines)
	}
	return n
}
