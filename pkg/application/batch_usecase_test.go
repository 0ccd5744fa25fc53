package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/domainservice"
	"github.com/WangYihang/AdsTxt-Crawler/pkg/infrastructure/storage"
)

type fakeRetriever struct {
	mu    sync.Mutex
	found map[string]*entity.RetrievalResult
	calls []string
}

func (r *fakeRetriever) Execute(ctx context.Context, domain entity.Domain) (*entity.RetrievalResult, []entity.Attempt, error) {
	r.mu.Lock()
	r.calls = append(r.calls, domain.Name)
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	failed := []entity.Attempt{
		{Source: "resolver", Kind: entity.KindTimeout},
		{Source: "corsproxy", Variant: domain.Name, Kind: entity.KindValidationRejected},
	}
	if result, ok := r.found[domain.Name]; ok {
		return result, failed[:1], nil
	}
	return nil, failed, nil
}

type memoryResults struct {
	mu      sync.Mutex
	results []*entity.BatchResult
	closed  bool
}

func (m *memoryResults) Write(r *entity.BatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}
func (m *memoryResults) Flush() error { return nil }
func (m *memoryResults) Close() error { m.closed = true; return nil }

type memoryLogs struct {
	mu       sync.Mutex
	attempts []*entity.AttemptLog
}

func (m *memoryLogs) WriteAttempt(e *entity.AttemptLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, e)
	return nil
}
func (m *memoryLogs) WriteHTTPLog(*entity.HTTPMessage) error { return nil }
func (m *memoryLogs) Close() error                           { return nil }

type countingObserver struct {
	mu      sync.Mutex
	updates int
	results int
	last    *entity.Metrics
}

func (o *countingObserver) OnMetricsUpdate(m *entity.Metrics) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates++
	o.last = m
}

func (o *countingObserver) OnResult(*entity.BatchResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results++
}

func newTestBatch(retriever Retriever, results *memoryResults, logs *memoryLogs) *BatchUseCase {
	return NewBatchUseCase(
		BatchConfig{NumWorkers: 3},
		retriever,
		domainservice.NewNormalizer(),
		storage.NewBloomFilter(storage.Config{Size: 1000, FalsePositiveRate: 0.001}),
		storage.NewTaskQueue(2),
		storage.NewResultQueue(2),
		results,
		logs,
	)
}

func TestBatch_Execute(t *testing.T) {
	input := strings.Join([]string{
		"# publishers",
		"example.com",
		"https://www.example.com/news",
		"",
		"missing.example",
		"   ",
		"https://",
		"news.example.org",
	}, "\n")

	retriever := &fakeRetriever{found: map[string]*entity.RetrievalResult{
		"example.com":      {FinalURL: "https://example.com/ads.txt", Content: "# x\na.com, 1, DIRECT\n", Source: "resolver"},
		"news.example.org": {FinalURL: "https://news.example.org/ads.txt", Content: "b.com, 2, RESELLER", Source: "allorigins-raw"},
	}}
	results := &memoryResults{}
	logs := &memoryLogs{}
	observer := &countingObserver{}

	uc := newTestBatch(retriever, results, logs)
	uc.RegisterMetricsObserver(observer)

	if err := uc.Execute(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(retriever.calls) != 3 {
		t.Errorf("retrievals = %v, want 3 unique domains", retriever.calls)
	}
	if len(results.results) != 4 {
		t.Fatalf("results = %d, want 4 (3 domains + 1 invalid)", len(results.results))
	}
	if !results.closed {
		t.Error("result writer was not closed")
	}

	byDomain := map[string]*entity.BatchResult{}
	for _, r := range results.results {
		byDomain[r.Domain] = r
	}

	if r := byDomain["example.com"]; r == nil || !r.Found || r.Lines != 2 || r.Attempts != 2 {
		t.Errorf("example.com result = %+v, want found with 2 lines and 2 attempts", r)
	}
	if r := byDomain["missing.example"]; r == nil || r.Found || r.Error != entity.ErrNotFound.Error() {
		t.Errorf("missing.example result = %+v, want not found", r)
	}
	if r := byDomain[""]; r == nil || r.Input != "https://" || r.Error == "" {
		t.Errorf("invalid input result = %+v, want an error record", r)
	}

	// 1 failed attempt for each found domain, 2 for the missing one
	if len(logs.attempts) != 4 {
		t.Errorf("attempt log entries = %d, want 4", len(logs.attempts))
	}

	m := uc.GetMetrics()
	if m.Found != 2 || m.NotFound != 1 || m.DuplicateInputs != 1 || m.TasksEnqueued != 3 {
		t.Errorf("metrics = %+v", m)
	}
	if m.ResolverHits != 1 || m.RelayHits != 1 || m.Rejected != 1 || m.Timeouts != 3 {
		t.Errorf("attempt metrics = %+v", m)
	}
	if m.TasksProcessed != 4 {
		t.Errorf("TasksProcessed = %d, want 4", m.TasksProcessed)
	}

	if observer.updates == 0 {
		t.Error("observer never received a metrics update")
	}
	if observer.results != 4 {
		t.Errorf("observer results = %d, want 4", observer.results)
	}
}

func TestBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := &memoryResults{}
	uc := newTestBatch(&fakeRetriever{}, results, &memoryLogs{})

	err := uc.Execute(ctx, strings.NewReader("a.example\nb.example\nc.example\nd.example\n"))
	if err == nil {
		t.Fatal("Execute() error = nil, want context error")
	}
	for _, r := range results.results {
		if r.Found {
			t.Errorf("unexpected found result after cancel: %+v", r)
		}
	}
}

func TestBatch_ResultOrderIndependent(t *testing.T) {
	var lines []string
	for _, d := range []string{"a.example", "b.example", "c.example", "d.example", "e.example"} {
		lines = append(lines, d)
	}

	results := &memoryResults{}
	uc := newTestBatch(&fakeRetriever{}, results, &memoryLogs{})
	if err := uc.Execute(context.Background(), strings.NewReader(strings.Join(lines, "\n"))); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got []string
	for _, r := range results.results {
		got = append(got, r.Domain)
	}
	sort.Strings(got)
	if strings.Join(got, ",") != strings.Join(lines, ",") {
		t.Errorf("domains = %v, want %v", got, lines)
	}
}
