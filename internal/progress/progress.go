// Package progress defines the notification contract consumed by the
// download and extraction pipeline.
//
// The pipeline only produces events; it never owns a transport. Callers
// plug in a Sink backed by whatever they like (a channel, a message
// broker, a terminal renderer). Every component works identically with
// no sink wired in, so the default everywhere is NopSink.
package progress

// Event is a structured progress notification. Concrete event types are
// plain value structs so sinks can switch on them.
type Event interface {
	event()
}

// ExtractionStarted is published exactly once at the start of an
// extraction session. FileCount is 0 when the format has no upfront
// directory (streaming tar).
type ExtractionStarted struct {
	ArchiveType string
	FileCount   int
	Destination string
}

// FileExtracted is published once per successfully written file entry,
// in entry order. Index is 1-based. Total mirrors ExtractionStarted's
// FileCount and is 0 when unknown.
type FileExtracted struct {
	FileName string
	Index    int
	Total    int
}

// ExtractionComplete is published exactly once when a session finishes
// without error. FileCount equals the number of file entries written.
type ExtractionComplete struct {
	FileCount int
}

// DownloadProgress reports coarse byte progress for a download in
// flight. Total is -1 when the response did not declare a length.
type DownloadProgress struct {
	Current int64
	Total   int64
}

func (ExtractionStarted) event()  {}
func (FileExtracted) event()      {}
func (ExtractionComplete) event() {}
func (DownloadProgress) event()   {}

// Sink receives events. Implementations must be safe for concurrent use
// and must not block the publishing operation; a sink with no receivers
// is not an error.
type Sink interface {
	Publish(Event)
}

// NopSink discards every event. It is the default sink.
type NopSink struct{}

// Publish implements Sink.
func (NopSink) Publish(Event) {}

// FuncSink adapts a function to the Sink interface.
type FuncSink func(Event)

// Publish implements Sink.
func (f FuncSink) Publish(e Event) { f(e) }
