package ingest

// Kind classifies why a single message was skipped. Run-scoped
// failures (connect, select, search) are returned from Run instead.
type Kind string

const (
	// KindTransport marks messages that could not be fetched because
	// the mail connection went away mid-batch.
	KindTransport Kind = "transport"

	// KindFetch marks a failure retrieving one message's bytes.
	KindFetch Kind = "fetch"

	// KindParse marks malformed message content.
	KindParse Kind = "parse"

	// KindStore marks a failed upsert, usually connectivity.
	KindStore Kind = "store"

	// KindIdentity marks a duplicate-key error under upsert, which
	// points at non-unique identity derivation rather than the store.
	KindIdentity Kind = "identity_conflict"
)
