package observability

// Exported for tests.
var (
	EnvSampler         = envSampler
	ResourceAttributes = resourceAttributes
)
