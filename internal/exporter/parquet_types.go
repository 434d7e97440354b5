package exporter

import "github.com/bridgepool/bridgepool/internal/parser"

// ParquetRow is one entry with its file digest and publication time repeated.
type ParquetRow struct {
	FileSHA            string   `parquet:"file_sha"`
	PublishedTimestamp int64    `parquet:"published_timestamp"`
	EntrySHA           string   `parquet:"entry_sha"`
	Fingerprint        string   `parquet:"fingerprint"`
	DistributionMethod string   `parquet:"distribution_method"`
	Transport          *string  `parquet:"transport,optional"`
	IP                 *string  `parquet:"ip,optional"`
	Blocklist          *string  `parquet:"blocklist,optional"`
	Distributed        *bool    `parquet:"distributed,optional"`
	State              *string  `parquet:"state,optional"`
	Bandwidth          *string  `parquet:"bandwidth,optional"`
	Ratio              *float64 `parquet:"ratio,optional"`
}

func newParquetRow(a *parser.Assignment, l *parser.LineEntry) ParquetRow {
	return ParquetRow{
		FileSHA:            a.FileSHA,
		PublishedTimestamp: a.Published,
		EntrySHA:           l.SHA,
		Fingerprint:        l.Fingerprint,
		DistributionMethod: l.DistributionMethod,
		Transport:          l.Transport,
		IP:                 l.IP,
		Blocklist:          l.Blocklist,
		Distributed:        l.Distributed,
		State:              l.State,
		Bandwidth:          l.Bandwidth,
		Ratio:              l.Ratio,
	}
}
