package exchange

// State identifies where the pipeline is inside one of its linear runs.
// Both machines start and finish at StateIdle; a validation failure jumps
// straight back to StateIdle without passing StateCommitting.
type State uint8

const (
	StateIdle State = iota

	// Export states.
	StateSnapshotting
	StateSerializing
	StateEncoding

	// Import states.
	StateDecoding
	StateDeserializing
	StateValidatingIdentity
	StateValidatingOwnerVersion
	StateValidatingEngineVersion
	StateCommitting
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSnapshotting:
		return "snapshotting"
	case StateSerializing:
		return "serializing"
	case StateEncoding:
		return "encoding"
	case StateDecoding:
		return "decoding"
	case StateDeserializing:
		return "deserializing"
	case StateValidatingIdentity:
		return "validatingIdentity"
	case StateValidatingOwnerVersion:
		return "validatingOwnerVersion"
	case StateValidatingEngineVersion:
		return "validatingEngineVersion"
	case StateCommitting:
		return "committing"
	default:
		return "unknown"
	}
}
