package entity

import "time"

// Domain represents a normalized domain name entity
type Domain struct {
	Name string
}

// Variants returns the host variants tried against relays, bare host first
func (d Domain) Variants() []string {
	return []string{d.Name, "www." + d.Name}
}

// Task represents a batch retrieval task
type Task struct {
	Domain    Domain
	Input     string
	CreatedAt time.Time
}

// RetrievalCandidate is one attempted source URL and what came back from it.
// RawBody is set only when FetchErr is nil. It only lives for the duration of
// one classification.
type RetrievalCandidate struct {
	SourceURL string
	RawBody   string
	FetchErr  *AttemptError
}

// RetrievalResult is the accepted ads.txt document for a domain.
// Content is non-empty and passed the content validator when it was returned.
type RetrievalResult struct {
	FinalURL string `json:"url"`
	Content  string `json:"content"`
	Source   string `json:"source"`
}

// Attempt is one entry of the attempt log kept by the orchestrator
type Attempt struct {
	Source     string        `json:"source"`
	Variant    string        `json:"variant,omitempty"`
	TargetURL  string        `json:"target_url"`
	RequestURL string        `json:"request_url,omitempty"`
	Kind       ErrorKind     `json:"kind"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	Accepted   bool          `json:"accepted"`
}

// BatchResult represents the outcome of one batch retrieval
type BatchResult struct {
	Domain    string    `json:"domain"`
	Input     string    `json:"input"`
	URL       string    `json:"url,omitempty"`
	Found     bool      `json:"found"`
	Lines     int       `json:"lines"`
	Source    string    `json:"source,omitempty"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Metrics represents batch retrieval metrics
type Metrics struct {
	QueueLength     int
	ActiveWorkers   int
	TotalWorkers    int
	Attempts        int64
	RelayAttempts   int64
	ResolverHits    int64
	RelayHits       int64
	Rejected        int64
	Timeouts        int64
	TasksProcessed  int64
	TasksEnqueued   int64
	Found           int64
	NotFound        int64
	DuplicateInputs int64
	StartTime       time.Time
	LastUpdateTime  time.Time
	ActiveDomains   []string
}
