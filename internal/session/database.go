package session

import "time"

type Database interface {
	ListJobs() ([]JobRecord, error)
	WriteJob(*JobRecord) error
	DeleteJob(*JobRecord) error
}

type NilDatabase struct{}

func (d NilDatabase) ListJobs() ([]JobRecord, error) {
	return nil, nil
}

func (d NilDatabase) WriteJob(_ *JobRecord) error {
	return nil
}

func (d NilDatabase) DeleteJob(_ *JobRecord) error {
	return nil
}

// A HistoryEntry records one verified download.
type HistoryEntry struct {
	URL         string
	Title       string
	OutputPath  string
	FormatID    string
	Quality     string
	SizeBytes   int64
	CompletedAt time.Time
}

// History remembers completed downloads across sessions, so the same output is not fetched twice.
type History interface {
	Record(entry HistoryEntry) error
	Completed(outputPath string) (bool, error)
}

type NilHistory struct{}

func (h NilHistory) Record(_ HistoryEntry) error {
	return nil
}

func (h NilHistory) Completed(_ string) (bool, error) {
	return false, nil
}
