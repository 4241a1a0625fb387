package indexer

// State is the coordinator's progress through one event.
type State int32

const (
	StateIdle State = iota
	StateExtracting
	StateEmbedding
	StateUpserting
	StatePersisted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateEmbedding:
		return "embedding"
	case StateUpserting:
		return "upserting"
	case StatePersisted:
		return "persisted"
	default:
		return "unknown"
	}
}
