package logging

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockEntryWriter is a test implementation of EntryWriter.
type mockEntryWriter struct {
	mu      sync.Mutex
	batches [][]LogEntry
	err     error
}

func (m *mockEntryWriter) WriteBatch(ctx context.Context, entries []LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	// Copy so later mutation of the shared batch slice can't race.
	batch := make([]LogEntry, len(entries))
	copy(batch, entries)
	m.batches = append(m.batches, batch)

	return nil
}

func (m *mockEntryWriter) GetBatches() [][]LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

func (m *mockEntryWriter) TotalEntries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, batch := range m.batches {
		total += len(batch)
	}
	return total
}

func TestAsyncSink_Batching(t *testing.T) {
	writer := &mockEntryWriter{}
	sink := NewAsyncSink(AsyncSinkConfig{
		Writer:        writer,
		BufferSize:    100,
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
	})
	defer sink.Close()

	// 25 entries: two full batches of 10, 5 left buffered.
	for i := 0; i < 25; i++ {
		sink.Write(LogEntry{
			Timestamp: time.Now(),
			Level:     "info",
			Component: "test",
			Message:   "test message",
		})
	}

	time.Sleep(50 * time.Millisecond)

	batches := writer.GetBatches()
	if len(batches) != 2 {
		t.Errorf("Expected 2 batches, got %d", len(batches))
	}

	for i, batch := range batches {
		if len(batch) != 10 {
			t.Errorf("Batch %d: expected 10 entries, got %d", i, len(batch))
		}
	}

	// Flush should write the remaining 5.
	ctx := context.Background()
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	batches = writer.GetBatches()
	if len(batches) != 3 {
		t.Errorf("After flush: expected 3 batches, got %d", len(batches))
	}

	if total := writer.TotalEntries(); total != 25 {
		t.Errorf("Expected 25 total entries, got %d", total)
	}
}

func TestAsyncSink_PeriodicFlush(t *testing.T) {
	writer := &mockEntryWriter{}
	sink := NewAsyncSink(AsyncSinkConfig{
		Writer:        writer,
		BufferSize:    100,
		BatchSize:     100, // Large batch size so we don't trigger batch flush
		FlushInterval: 200 * time.Millisecond,
	})
	defer sink.Close()

	for i := 0; i < 5; i++ {
		sink.Write(LogEntry{
			Timestamp: time.Now(),
			Level:     "info",
			Component: "test",
			Message:   "test message",
		})
	}

	// Wait for periodic flush.
	time.Sleep(300 * time.Millisecond)

	batches := writer.GetBatches()
	if len(batches) != 1 {
		t.Errorf("Expected 1 batch from periodic flush, got %d", len(batches))
	}

	if len(batches) > 0 && len(batches[0]) != 5 {
		t.Errorf("Expected 5 entries in batch, got %d", len(batches[0]))
	}
}

func TestAsyncSink_FullBuffer(t *testing.T) {
	writer := &mockEntryWriter{}
	sink := NewAsyncSink(AsyncSinkConfig{
		Writer:        writer,
		BufferSize:    10,  // Small buffer
		BatchSize:     100, // Large batch size
		FlushInterval: 10 * time.Second,
	})
	defer sink.Close()

	// Write more than the buffer can hold.
	for i := 0; i < 20; i++ {
		sink.Write(LogEntry{
			Timestamp: time.Now(),
			Level:     "info",
			Component: "test",
			Message:   "test message",
		})
	}

	ctx := context.Background()
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	total := writer.TotalEntries()
	if total >= 20 {
		t.Errorf("Expected some entries to be dropped (buffer=10), but got %d entries written", total)
	}

	// Async processing may drain a few entries while we write, so allow
	// slightly more than the buffer size.
	if total > 15 {
		t.Errorf("Expected around buffer size (10) entries, got %d", total)
	}
}

func TestAsyncSink_Close(t *testing.T) {
	writer := &mockEntryWriter{}
	sink := NewAsyncSink(AsyncSinkConfig{
		Writer:        writer,
		BufferSize:    100,
		BatchSize:     10,
		FlushInterval: 1 * time.Second,
	})

	for i := 0; i < 5; i++ {
		sink.Write(LogEntry{
			Timestamp: time.Now(),
			Level:     "info",
			Component: "test",
			Message:   "test message",
		})
	}

	// Close should flush remaining entries.
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if total := writer.TotalEntries(); total != 5 {
		t.Errorf("Expected 5 entries after close, got %d", total)
	}

	// Writing after close should be safe (no-op).
	sink.Write(LogEntry{
		Timestamp: time.Now(),
		Level:     "info",
		Component: "test",
		Message:   "should be ignored",
	})

	if total := writer.TotalEntries(); total != 5 {
		t.Errorf("Expected 5 entries (write after close ignored), got %d", total)
	}
}

func TestAsyncSink_ConcurrentWrites(t *testing.T) {
	writer := &mockEntryWriter{}
	sink := NewAsyncSink(AsyncSinkConfig{
		Writer:        writer,
		BufferSize:    500, // Large enough to handle concurrent writes
		BatchSize:     50,
		FlushInterval: 100 * time.Millisecond,
	})
	defer sink.Close()

	const goroutines = 10
	const entriesPerGoroutine = 20
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < entriesPerGoroutine; j++ {
				sink.Write(LogEntry{
					Timestamp: time.Now(),
					Level:     "info",
					Component: "test",
					Message:   "concurrent write",
				})
				time.Sleep(time.Microsecond)
			}
		}(i)
	}

	wg.Wait()

	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	total := writer.TotalEntries()
	expected := goroutines * entriesPerGoroutine
	if total < expected-5 { // Allow small margin for async processing
		t.Errorf("Expected around %d entries from concurrent writes, got %d (too many dropped)", expected, total)
	}
}

func TestAsyncSink_FieldsPreserved(t *testing.T) {
	writer := &mockEntryWriter{}
	sink := NewAsyncSink(AsyncSinkConfig{
		Writer:        writer,
		BufferSize:    10,
		BatchSize:     10,
		FlushInterval: 1 * time.Second,
	})
	defer sink.Close()

	testFields := map[string]string{
		"key1": "value1",
		"key2": "value2",
	}
	sink.Write(LogEntry{
		Timestamp: time.Now(),
		Level:     "warn",
		Component: "resolver",
		Message:   "test message",
		Fields:    testFields,
		TraceID:   "trace-123",
	})

	time.Sleep(10 * time.Millisecond)

	ctx := context.Background()
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	batches := writer.GetBatches()
	if len(batches) == 0 {
		t.Fatalf("Expected at least 1 batch, got 0")
	}

	totalEntries := 0
	for _, batch := range batches {
		totalEntries += len(batch)
	}
	if totalEntries != 1 {
		t.Fatalf("Expected 1 entry total, got %d", totalEntries)
	}

	var entry LogEntry
	for _, batch := range batches {
		if len(batch) > 0 {
			entry = batch[0]
			break
		}
	}
	if entry.Level != "warn" {
		t.Errorf("Level: expected 'warn', got '%s'", entry.Level)
	}
	if entry.Component != "resolver" {
		t.Errorf("Component: expected 'resolver', got '%s'", entry.Component)
	}
	if entry.Message != "test message" {
		t.Errorf("Message: expected 'test message', got '%s'", entry.Message)
	}
	if entry.TraceID != "trace-123" {
		t.Errorf("TraceID: expected 'trace-123', got '%s'", entry.TraceID)
	}
	if entry.Fields["key1"] != "value1" {
		t.Errorf("Fields[key1]: expected 'value1', got '%s'", entry.Fields["key1"])
	}
	if entry.Fields["key2"] != "value2" {
		t.Errorf("Fields[key2]: expected 'value2', got '%s'", entry.Fields["key2"])
	}
}
