package backends

import (
	"sync"
	"time"

	"github.com/gaugehq/gauge/pkg/models"
)

// logBufferCapacity bounds each backend's diagnostic buffer. The oldest
// entry is evicted first once the capacity is reached.
const logBufferCapacity = 200

// LogBuffer is a bounded circular buffer of diagnostic log entries kept per
// backend for operator visibility. Safe for concurrent use.
type LogBuffer struct {
	mu      sync.Mutex
	entries []models.LogEntry
}

// NewLogBuffer returns an empty buffer.
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{}
}

// Push appends an entry, evicting the oldest one when full.
func (b *LogBuffer) Push(level models.LogLevel, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, models.LogEntry{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	})
	if len(b.entries) > logBufferCapacity {
		b.entries = b.entries[1:]
	}
}

// Entries returns a copy of the buffered entries, oldest first.
func (b *LogBuffer) Entries() []models.LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.LogEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Clear drops all buffered entries.
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}
