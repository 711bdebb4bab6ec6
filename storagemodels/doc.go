/*
Package storagemodels defines the streaming types shared by every storage engine.

StreamResult:
One element of a lazy scan, with metadata:

	type StreamResult[T any] struct {
	    Item  T          // The decoded entity
	    Error error      // Item-specific error, if any
	    Meta  StreamMeta // Metadata about this item
	}

StreamOptions:
Configuration for scan behavior:

	results := engine.Scan(ctx, match,
	    storagemodels.WithBufferSize(100),
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(progressFunc),
	)

Streams are finite and closed by the producer. They are not restartable: a scan
that fails mid-way must be started again from the beginning.
*/
package storagemodels
