package godbc

// Default build-time resource ceilings. In the fixed-capacity
// configuration these would be array dimensions; here, where the core
// always runs on the heap, they are validation ceilings: the container caps
// are enforced by storage.Sequence, and MaxNameSize by the identifier check
// applied to node, message and signal names.
const (
	DefaultMaxMessages            = 8192
	DefaultMaxSignalsPerMessage   = 256
	DefaultMaxNodes               = 256
	DefaultMaxReceiverNodes       = 64
	DefaultMaxValueDescriptions   = 64
	DefaultMaxNameSize            = 32
	DefaultMaxExtendedMultiplexing = 512
)

// Limits bundles the size caps so they can be overridden together, e.g.
// from the CLI's YAML config file (see cmd/dbccli/config.go).
type Limits struct {
	MaxMessages             int
	MaxSignalsPerMessage    int
	MaxNodes                int
	MaxReceiverNodes        int
	MaxValueDescriptions    int
	MaxNameSize             int
	MaxExtendedMultiplexing int
}

// DefaultLimits returns the default ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxMessages:             DefaultMaxMessages,
		MaxSignalsPerMessage:    DefaultMaxSignalsPerMessage,
		MaxNodes:                DefaultMaxNodes,
		MaxReceiverNodes:        DefaultMaxReceiverNodes,
		MaxValueDescriptions:    DefaultMaxValueDescriptions,
		MaxNameSize:             DefaultMaxNameSize,
		MaxExtendedMultiplexing: DefaultMaxExtendedMultiplexing,
	}
}

// Options configures parse(_with_options) behavior, including the
// lenient/strict tradeoffs below.
type Options struct {
	Limits Limits

	// StrictBoundaries is carried through from the CLI config but is not
	// consulted by the parser: entities are accepted in any section order
	// whatever its value.
	StrictBoundaries bool

	// AllowUnknownSender, when true (default), accepts any identifier as a
	// message sender even if absent from BU_. When false, a sender not in
	// the node list (and not Vector__XXX) is a validation error.
	AllowUnknownSender bool

	// AcceptSpaceSeparatedReceivers additionally accepts whitespace (not
	// just commas) between receiver identifiers on parse, since real files
	// use both. Serialization always emits commas.
	AcceptSpaceSeparatedReceivers bool
}

// DefaultOptions returns the lenient defaults.
func DefaultOptions() Options {
	return Options{
		Limits:                        DefaultLimits(),
		StrictBoundaries:              false,
		AllowUnknownSender:            true,
		AcceptSpaceSeparatedReceivers: true,
	}
}
