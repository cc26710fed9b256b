package godbc

import "github.com/canframe/godbc/storage"

// buildSignal validates a draft signal against the core field invariants
// and returns the immutable Signal. Both SignalBuilder and the parser's
// finalize step call this so the two construction paths can never drift
// apart.
func buildSignal(limits Limits, name string, startBit, length uint16, order ByteOrder,
	unsigned bool, factor, offset, min, max float64, unit string,
	receivers Receivers, mux MultiplexerRole, valueType ValueType, line int) (Signal, error) {

	if err := validateIdentifier("signal", name, limits.MaxNameSize); err != nil {
		return Signal{}, withLine(err, line)
	}
	if length < 1 || length > 64 {
		return Signal{}, newErr(KindValidation, line, "signal length must be in [1, 64]", "name", name)
	}
	if factor == 0 {
		return Signal{}, newErr(KindValidation, line, "signal factor must not be zero", "name", name)
	}
	if min > max {
		return Signal{}, newErr(KindValidation, line, "signal min must not exceed max", "name", name)
	}
	if valueType == ValueTypeFloat32 && length != 32 {
		return Signal{}, newErr(KindUnsupportedValueType, line, "", "name", name)
	}
	if valueType == ValueTypeFloat64 && length != 64 {
		return Signal{}, newErr(KindUnsupportedValueType, line, "", "name", name)
	}

	return Signal{
		Name:      name,
		StartBit:  startBit,
		Length:    length,
		ByteOrder: order,
		Unsigned:  unsigned,
		Factor:    factor,
		Offset:    offset,
		Min:       min,
		Max:       max,
		Unit:      unit,
		Receivers: receivers,
		Multiplex: mux,
		ValueType: valueType,
	}, nil
}

func withLine(err error, line int) error {
	if e, ok := err.(*Error); ok && e.Line == 0 {
		e.Line = line
		return e
	}
	return err
}

// buildMessage validates a draft message's signals against its core
// invariants (unique signal names, bit range within the DLC, no overlapping
// bit ranges except between mutually exclusive multiplex alternatives) and
// returns the immutable Message.
func buildMessage(limits Limits, id uint32, name string, dlc uint8, sender string,
	signals []Signal, line int) (Message, error) {

	if name != PseudoMessageName {
		if err := validateIdentifier("message", name, limits.MaxNameSize); err != nil {
			return Message{}, withLine(err, line)
		}
	}
	if _, err := storage.SequenceFrom("signals", limits.MaxSignalsPerMessage, signals); err != nil {
		return Message{}, capacityErr(err, line)
	}

	seen := make(map[string]bool, len(signals))
	hasSwitch := false
	totalBits := int(dlc) * 8
	for _, s := range signals {
		if seen[s.Name] {
			return Message{}, newErr(KindDuplicateName, line, "", "name", s.Name)
		}
		seen[s.Name] = true

		if s.Multiplex.Kind == MultiplexSwitch {
			if hasSwitch {
				return Message{}, newErr(KindValidation, line, "message declares more than one multiplexer switch signal")
			}
			hasSwitch = true
		}

		if !name_isPseudo(name) {
			bits, err := s.occupiedBits()
			if err != nil {
				return Message{}, withLine(err, line)
			}
			for _, b := range bits {
				if b < 0 || b >= totalBits {
					return Message{}, newErr(KindValidation, line,
						"signal bit range falls outside the message's declared DLC", "name", s.Name)
				}
			}
		}
	}

	if !hasSwitch {
		for _, s := range signals {
			if s.Multiplex.Kind == MultiplexMultiplexed {
				return Message{}, newErr(KindValidation, line,
					"message has a multiplexed signal but no multiplexer switch signal", "name", s.Name)
			}
		}
	}

	if err := checkBitOverlap(signals, line); err != nil {
		return Message{}, err
	}

	cp := make([]Signal, len(signals))
	copy(cp, signals)
	return Message{ID: id, Name: name, Dlc: dlc, Sender: sender, signals: cp}, nil
}

func name_isPseudo(name string) bool { return name == PseudoMessageName }

// checkBitOverlap enforces the rule that two signals may not occupy
// the same bit unless they are mutually exclusive multiplex alternatives:
// both multiplexed, with different Multiplex.Value. Any overlap involving a
// plain or switch signal is rejected, since both signals are active at once.
func checkBitOverlap(signals []Signal, line int) error {
	type occ struct {
		signal string
		mux    MultiplexerRole
	}
	owners := make(map[int][]occ)
	for _, s := range signals {
		bits, err := s.occupiedBits()
		if err != nil {
			return withLine(err, line)
		}
		for _, b := range bits {
			for _, prev := range owners[b] {
				if !mutuallyExclusive(prev.mux, s.Multiplex) {
					return newErr(KindValidation, line, "overlapping signal bit ranges", "name", s.Name)
				}
			}
			owners[b] = append(owners[b], occ{signal: s.Name, mux: s.Multiplex})
		}
	}
	return nil
}

func mutuallyExclusive(a, b MultiplexerRole) bool {
	if a.Kind == MultiplexMultiplexed && b.Kind == MultiplexMultiplexed {
		return a.Value != b.Value
	}
	return false
}

// SignalBuilder fluently accumulates a Signal's fields, validating on
// Build.
type SignalBuilder struct {
	limits    Limits
	name      string
	startBit  uint16
	length    uint16
	order     ByteOrder
	unsigned  bool
	factor    float64
	offset    float64
	min, max  float64
	unit      string
	receivers Receivers
	mux       MultiplexerRole
	valueType ValueType
}

// NewSignalBuilder starts a signal named name, with defaults of plain
// multiplexing, integer value type, factor 1, little-endian, unsigned.
func NewSignalBuilder(name string, limits Limits) *SignalBuilder {
	return &SignalBuilder{
		limits:    limits,
		name:      name,
		order:     LittleEndian,
		unsigned:  true,
		factor:    1,
		mux:       Plain(),
		valueType: ValueTypeInteger,
		receivers: Broadcast(),
	}
}

func (b *SignalBuilder) Bits(startBit, length uint16) *SignalBuilder {
	b.startBit, b.length = startBit, length
	return b
}
func (b *SignalBuilder) ByteOrder(o ByteOrder) *SignalBuilder { b.order = o; return b }
func (b *SignalBuilder) Signed() *SignalBuilder               { b.unsigned = false; return b }
func (b *SignalBuilder) Scale(factor, offset float64) *SignalBuilder {
	b.factor, b.offset = factor, offset
	return b
}
func (b *SignalBuilder) Range(min, max float64) *SignalBuilder { b.min, b.max = min, max; return b }
func (b *SignalBuilder) Unit(unit string) *SignalBuilder       { b.unit = unit; return b }
func (b *SignalBuilder) Receivers(r Receivers) *SignalBuilder  { b.receivers = r; return b }
func (b *SignalBuilder) Multiplex(m MultiplexerRole) *SignalBuilder {
	b.mux = m
	return b
}
func (b *SignalBuilder) ValueType(vt ValueType) *SignalBuilder { b.valueType = vt; return b }

// Build validates and returns the finished Signal.
func (b *SignalBuilder) Build() (Signal, error) {
	return buildSignal(b.limits, b.name, b.startBit, b.length, b.order, b.unsigned,
		b.factor, b.offset, b.min, b.max, b.unit, b.receivers, b.mux, b.valueType, 0)
}

// MessageBuilder fluently accumulates a Message's signals, validating on
// Build.
type MessageBuilder struct {
	limits  Limits
	id      uint32
	name    string
	dlc     uint8
	sender  string
	signals []Signal
}

// NewMessageBuilder starts a message with the given ID and name.
func NewMessageBuilder(id uint32, name string, limits Limits) *MessageBuilder {
	return &MessageBuilder{limits: limits, id: id, name: name}
}

func (b *MessageBuilder) Dlc(dlc uint8) *MessageBuilder     { b.dlc = dlc; return b }
func (b *MessageBuilder) Sender(node string) *MessageBuilder { b.sender = node; return b }

// AddSignal appends a built Signal.
func (b *MessageBuilder) AddSignal(s Signal) *MessageBuilder {
	b.signals = append(b.signals, s)
	return b
}

// Build validates and returns the finished Message.
func (b *MessageBuilder) Build() (Message, error) {
	return buildMessage(b.limits, b.id, b.name, b.dlc, b.sender, b.signals, 0)
}

// DbcBuilder fluently accumulates a whole Dbc, validating cross-message
// invariants (unique IDs/names) on AddMessage and running the full
// Validator on Build. To change an existing Dbc, seed a builder from it,
// change what's needed, and rebuild.
type DbcBuilder struct {
	opts              Options
	limits            Limits
	version           Version
	nodes             Nodes
	messages          *storage.Sequence[Message]
	ids               map[uint32]bool
	names             map[string]bool
	valueDescriptions map[SignalKey]ValueDescriptions
	extendedMuxing    *storage.Sequence[ExtendedMultiplexing]
}

// NewDbcBuilder starts an empty builder under the given options.
func NewDbcBuilder(opts Options) *DbcBuilder {
	return &DbcBuilder{
		opts:              opts,
		limits:            opts.Limits,
		messages:          storage.NewSequence[Message]("messages", opts.Limits.MaxMessages),
		ids:               make(map[uint32]bool),
		names:             make(map[string]bool),
		valueDescriptions: make(map[SignalKey]ValueDescriptions),
		extendedMuxing:    storage.NewSequence[ExtendedMultiplexing]("extended-multiplexing", opts.Limits.MaxExtendedMultiplexing),
	}
}

func (b *DbcBuilder) Version(v Version) *DbcBuilder { b.version = v; return b }
func (b *DbcBuilder) Nodes(n Nodes) *DbcBuilder      { b.nodes = n; return b }

// AddMessage validates ID/name uniqueness immediately so the error points
// at the offending message without waiting for Build.
func (b *DbcBuilder) AddMessage(m Message) error {
	if b.ids[m.ID] {
		return newErr(KindDuplicateID, 0, "", "id", m.ID)
	}
	if b.names[m.Name] {
		return newErr(KindDuplicateName, 0, "", "name", m.Name)
	}
	if err := b.messages.Push(m); err != nil {
		return capacityErr(err, 0)
	}
	b.ids[m.ID] = true
	b.names[m.Name] = true
	return nil
}

// AddValueDescriptions attaches a VAL_ table to (messageID, signalName).
func (b *DbcBuilder) AddValueDescriptions(messageID uint32, signalName string, vd ValueDescriptions) {
	b.valueDescriptions[SignalKey{MessageID: messageID, Signal: signalName}] = vd
}

// AddExtendedMultiplexing attaches an SG_MUL_VAL_ entry.
func (b *DbcBuilder) AddExtendedMultiplexing(e ExtendedMultiplexing) error {
	if err := b.extendedMuxing.Push(e); err != nil {
		return capacityErr(err, 0)
	}
	return nil
}

// Build runs the full Validator over the accumulated entities and,
// on success, returns the immutable Dbc.
func (b *DbcBuilder) Build() (*Dbc, error) {
	d := &Dbc{
		Version:           b.version,
		Nodes:             b.nodes,
		Messages:          NewMessages(b.messages.All()),
		valueDescriptions: b.valueDescriptions,
		extendedMuxing:    b.extendedMuxing,
	}
	if err := Validate(d, b.opts); err != nil {
		return nil, err
	}
	return d, nil
}
