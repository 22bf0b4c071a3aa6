package ingest

import "context"

// Ingestor is the orchestrator surface handlers and the scheduler depend on.
type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(sourceID string)
	ProcessOne(ctx context.Context, sourceID string) (*Stats, error)
	// ProcessWebsite re-ingests a website source crawling from baseURL instead
	// of the source's stored URL. The scheduler derives baseURL from existing
	// content records, since refresh runs unattended.
	ProcessWebsite(ctx context.Context, sourceID, baseURL string) (*Stats, error)
}
