package session

type Event interface {
	// The job this event relates to ("" if not a job-specific event).
	JobID() JobID
}

type sessionEvent struct{}

func (e sessionEvent) JobID() JobID {
	return ""
}

type jobEvent struct {
	id JobID
}

func (e jobEvent) JobID() JobID {
	return e.id
}

type LinksDiscovered struct {
	sessionEvent
	BaseURL string
	Links   []DiscoveredLink
	Err     error
}

type SelectionChanged struct {
	sessionEvent
	URLs []string
}

type JobsCleared struct {
	sessionEvent
}

type JobAdded struct {
	jobEvent
	State JobState
}

type JobUpdated struct {
	jobEvent
	OldState JobState
	NewState JobState
}

// ProgressOnly is true if the update changed nothing but the download progress.
func (e JobUpdated) ProgressOnly() bool {
	return e.OldState.Status == e.NewState.Status && e.OldState.JobProgress != e.NewState.JobProgress
}

// IsProgressOnly reports whether e is a JobUpdated carrying only progress.
func IsProgressOnly(e Event) bool {
	u, ok := e.(JobUpdated)
	return ok && u.ProgressOnly()
}

type BatchProgress struct {
	sessionEvent
	Done  int
	Total int
}

type BatchFinished struct {
	sessionEvent
	Result BatchResult
}
