// Package publisher delivers completed validation reports to the reporting
// layer over Redis streams.
package publisher

// Publisher represents a service for publishing validation reports
type Publisher interface {
	// Publish publishes one report under the given key
	Publish(key string, report []byte) error

	// TrimStreams trims all report streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
