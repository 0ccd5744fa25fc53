package storage

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/repository"
)

// BloomFilter implements repository.DomainFilter using Bloom filter.
// It only lives for one batch run.
type BloomFilter struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// Config holds Bloom filter configuration
type Config struct {
	Size              uint
	FalsePositiveRate float64
}

// NewBloomFilter creates a new Bloom filter
func NewBloomFilter(config Config) repository.DomainFilter {
	if config.Size == 0 {
		config.Size = 100000
	}
	if config.FalsePositiveRate <= 0 || config.FalsePositiveRate >= 1 {
		config.FalsePositiveRate = 0.001
	}
	return &BloomFilter{
		filter: bloom.NewWithEstimates(config.Size, config.FalsePositiveRate),
	}
}

// TestAndAdd reports whether domain was (probably) present, then adds it
func (bf *BloomFilter) TestAndAdd(domain string) bool {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	return bf.filter.TestAndAddString(domain)
}
