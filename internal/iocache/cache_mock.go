package iocache

import (
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetFetchStore implements the CacheManager interface.
func (m *MockCacheManager) GetFetchStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetAnalysisStore implements the CacheManager interface.
func (m *MockCacheManager) GetAnalysisStore() contract.AnalysisStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.AnalysisStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// MockAnalysisStore is a mock implementation of AnalysisStore for testing.
type MockAnalysisStore struct {
	mock.Mock
}

var _ contract.AnalysisStore = &MockAnalysisStore{} // Compile-time check

// BeginAnalysis implements the AnalysisStore interface.
func (m *MockAnalysisStore) BeginAnalysis(startTime time.Time, projectID string, rng schema.DateRange, granularity schema.Granularity, configParams map[string]any) (int64, error) {
	args := m.Called(startTime, projectID, rng, granularity, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// RecordScores implements the AnalysisStore interface.
func (m *MockAnalysisStore) RecordScores(analysisID int64, scores []schema.CategoryScore) error {
	args := m.Called(analysisID, scores)
	return args.Error(0)
}

// RecordBuckets implements the AnalysisStore interface.
func (m *MockAnalysisStore) RecordBuckets(analysisID int64, buckets []schema.TimeBucket) error {
	args := m.Called(analysisID, buckets)
	return args.Error(0)
}

// EndAnalysis implements the AnalysisStore interface.
func (m *MockAnalysisStore) EndAnalysis(analysisID int64, endTime time.Time, report schema.NormalizeReport) error {
	args := m.Called(analysisID, endTime, report)
	return args.Error(0)
}

// GetStatus implements the AnalysisStore interface.
func (m *MockAnalysisStore) GetStatus() (schema.AnalysisStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.AnalysisStatus), args.Error(1)
}

// GetAllAnalysisRuns implements the AnalysisStore interface.
func (m *MockAnalysisStore) GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.AnalysisRunRecord)
	return runs, args.Error(1)
}

// GetAllCategoryScores implements the AnalysisStore interface.
func (m *MockAnalysisStore) GetAllCategoryScores() ([]schema.CategoryScoreRecord, error) {
	args := m.Called()
	scores, _ := args.Get(0).([]schema.CategoryScoreRecord)
	return scores, args.Error(1)
}

// GetAllTimeBuckets implements the AnalysisStore interface.
func (m *MockAnalysisStore) GetAllTimeBuckets() ([]schema.TimeBucketRecord, error) {
	args := m.Called()
	buckets, _ := args.Get(0).([]schema.TimeBucketRecord)
	return buckets, args.Error(1)
}

// Close implements the AnalysisStore interface.
func (m *MockAnalysisStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
