// Package godbc parses, validates, serializes and encodes/decodes DBC (CAN
// Database) files: the textual format describing the messages and signals
// carried on a single Controller Area Network.
//
// The pipeline has four stages: bytes are scanned into tokens,
// entity parsers turn tokens into typed drafts, the drafts are assembled
// into an immutable Dbc by the same validating constructors the public
// Builder API uses, and a Validator pass checks the cross-entity
// invariants. A Dbc is read-only once returned; mutation is never exposed,
// so one Dbc can be shared across goroutines by read-only reference.
package godbc

import (
	"fmt"
	"sync"

	"github.com/canframe/godbc/storage"
)

// BroadcastNode is the reserved DBC identifier meaning "no specific node".
const BroadcastNode = "Vector__XXX"

// PseudoMessageName is the reserved message name used to park signals that
// are not attached to any real CAN frame.
const PseudoMessageName = "VECTOR__INDEPENDENT_SIG_MSG"

// PseudoMessageID is the conventional ID carried by the pseudo-message.
const PseudoMessageID uint32 = 0xC0000000

// extendedIDFlag is OR-ed into a message's stored ID to mark it as a
// 29-bit extended CAN ID rather than an 11-bit standard one.
const extendedIDFlag uint32 = 0x80000000

// reservedKeywords are DBC section keywords that may not be used as
// message/node/signal identifiers.
var reservedKeywords = map[string]bool{
	"VERSION": true, "NS_": true, "BS_": true, "BU_": true, "BO_": true,
	"SG_": true, "VAL_": true, "SIG_VALTYPE_": true, "SG_MUL_VAL_": true,
	"CM_": true, "BA_": true, "BA_DEF_": true, "BA_DEF_DEF_": true,
	"EV_": true, "VAL_TABLE_": true, "SGTYPE_": true, "SIG_GROUP_": true,
	"BO_TX_BU_": true,
}

func validateIdentifier(kind, name string, maxLen int) error {
	if name == "" {
		return newErr(KindValidation, 0, fmt.Sprintf("%s name must not be empty", kind))
	}
	if maxLen > 0 && len(name) > maxLen {
		return newErr(KindMaxStrLength, 0, fmt.Sprintf("%s name exceeds max length", kind),
			"limit", maxLen, "name", name)
	}
	first := name[0]
	if !(isAlpha(first) || first == '_') {
		return newErr(KindInvalidChar, 0, fmt.Sprintf("%s name must start with a letter or underscore", kind),
			"char", string(first), "name", name)
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(isAlpha(c) || isDigit(c) || c == '_') {
			return newErr(KindInvalidChar, 0, fmt.Sprintf("%s name has invalid character", kind),
				"char", string(c), "name", name)
		}
	}
	if reservedKeywords[name] {
		return newErr(KindValidation, 0, fmt.Sprintf("%s name %q is a reserved DBC keyword", kind, name))
	}
	return nil
}

func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ByteOrder is the packing direction of a signal's bits within its frame.
type ByteOrder uint8

const (
	// BigEndian is Vector's "@0" Motorola sawtooth bit numbering.
	BigEndian ByteOrder = iota
	// LittleEndian is Vector's "@1" Intel bit numbering.
	LittleEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big_endian"
	}
	return "little_endian"
}

// ValueType is the physical interpretation of a signal's raw bits.
type ValueType uint8

const (
	ValueTypeInteger ValueType = iota
	ValueTypeFloat32
	ValueTypeFloat64
)

// MultiplexKind discriminates the three roles a signal can play with
// respect to multiplexing.
type MultiplexKind uint8

const (
	MultiplexPlain MultiplexKind = iota
	MultiplexSwitch
	MultiplexMultiplexed
)

// MultiplexerRole is the {Plain, Switch, Multiplexed(u32)} sum describing
// how a signal participates in a message's multiplexing.
type MultiplexerRole struct {
	Kind  MultiplexKind
	Value uint32 // meaningful only when Kind == MultiplexMultiplexed
}

// Plain returns the role of an always-present signal.
func Plain() MultiplexerRole { return MultiplexerRole{Kind: MultiplexPlain} }

// Switch returns the role of a message's multiplexer switch signal.
func Switch() MultiplexerRole { return MultiplexerRole{Kind: MultiplexSwitch} }

// Multiplexed returns the role of a signal active only when the switch
// holds value v (absent an SG_MUL_VAL_ override).
func Multiplexed(v uint32) MultiplexerRole {
	return MultiplexerRole{Kind: MultiplexMultiplexed, Value: v}
}

// ReceiverKind discriminates the three shapes Receivers can take.
type ReceiverKind uint8

const (
	// ReceiverBroadcast is the lone reserved token Vector__XXX.
	ReceiverBroadcast ReceiverKind = iota
	// ReceiverNone means no downstream node is declared to care.
	ReceiverNone
	// ReceiverNodeList means one or more concrete node names.
	ReceiverNodeList
)

// Receivers is the discriminated sum {Broadcast, None, Nodes(list)}.
type Receivers struct {
	Kind  ReceiverKind
	Nodes []string // only populated for ReceiverNodeList
}

// Broadcast returns the Vector__XXX receiver value.
func Broadcast() Receivers { return Receivers{Kind: ReceiverBroadcast} }

// NodeReceivers returns a concrete receiver list, validated against the
// per-signal cap and non-emptiness: an empty receiver list is rejected.
func NodeReceivers(names []string, maxReceivers int) (Receivers, error) {
	if len(names) == 0 {
		return Receivers{}, newErr(KindValidation, 0, "signal receiver list must not be empty")
	}
	seq, err := storage.SequenceFrom("receivers", maxReceivers, names)
	if err != nil {
		return Receivers{}, capacityErr(err, 0)
	}
	return Receivers{Kind: ReceiverNodeList, Nodes: seq.All()}, nil
}

// Version is the free-form optional VERSION string.
type Version struct {
	text string
}

// NewVersion wraps s, which may be empty.
func NewVersion(s string) Version { return Version{text: s} }

// String returns the raw version text, "" when absent.
func (v Version) String() string { return v.text }

// IsEmpty reports whether no VERSION was declared.
func (v Version) IsEmpty() bool { return v.text == "" }

// Nodes is the ordered set of distinct transmitter/receiver identifiers
// declared by BU_. Membership is case-sensitive. Backed by a
// storage.Sequence so the BU_ cap is enforced by the same bounded-container
// logic used by embedded builds, rather than an ad hoc length check.
type Nodes struct {
	seq *storage.Sequence[string]
}

// NewNodes validates names for duplicates and the identifier grammar,
// returning an ordered Nodes set.
func NewNodes(names []string, maxNameSize, maxNodes int) (Nodes, error) {
	checked, err := storage.SequenceFrom("nodes", maxNodes, names)
	if err != nil {
		return Nodes{}, capacityErr(err, 0)
	}

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range checked.All() {
		if n == BroadcastNode {
			// Vector__XXX is reserved and never declared as a real node.
			return Nodes{}, newErr(KindValidation, 0, "BU_ must not declare the reserved node "+BroadcastNode)
		}
		if err := validateIdentifier("node", n, maxNameSize); err != nil {
			return Nodes{}, err
		}
		if seen[n] {
			return Nodes{}, newErr(KindDuplicateName, 0, "", "name", n)
		}
		seen[n] = true
		out = append(out, n)
	}
	seq, _ := storage.SequenceFrom("nodes", 0, out) // out.Len() <= checked.Len(), cannot fail
	return Nodes{seq: seq}, nil
}

// Len returns the number of declared nodes.
func (n Nodes) Len() int { return n.seq.Len() }

// Contains reports whether name was declared in BU_.
func (n Nodes) Contains(name string) bool {
	for _, v := range n.seq.All() {
		if v == name {
			return true
		}
	}
	return false
}

// All returns the node names in declared order. The returned slice must
// not be mutated.
func (n Nodes) All() []string { return n.seq.All() }

// Signal is one packed field within a Message.
type Signal struct {
	Name      string
	StartBit  uint16
	Length    uint16
	ByteOrder ByteOrder
	Unsigned  bool
	Factor    float64
	Offset    float64
	Min       float64
	Max       float64
	Unit      string
	Receivers Receivers
	Multiplex MultiplexerRole
	ValueType ValueType
}

// occupiedBits returns the absolute bit indices this signal
// occupies, ordered from the value's least significant bit to its most
// significant bit: occupiedBits()[i] always carries weight 2^i. This lets
// the overlap check and the runtime codec treat both byte orders
// uniformly once the positions are computed.
func (s Signal) occupiedBits() ([]int, error) {
	if s.ByteOrder == LittleEndian {
		bits := make([]int, 0, s.Length)
		for i := 0; i < int(s.Length); i++ {
			bits = append(bits, int(s.StartBit)+i)
		}
		return bits, nil
	}
	// BigEndian: sawtooth walk starting at StartBit (the value's MSB),
	// descending within the byte then wrapping to bit 7 of the next byte,
	// producing bits MSB-first; reverse so index 0 is the LSB.
	bits := make([]int, s.Length)
	pos := int(s.StartBit)
	for i := 0; i < int(s.Length); i++ {
		bits[int(s.Length)-1-i] = pos
		if pos%8 == 0 {
			pos += 15
		} else {
			pos--
		}
	}
	return bits, nil
}

// Bits returns the signal's occupied absolute bit indices ordered from
// its value's least significant bit (index 0, weight 2^0) to its most
// significant bit, regardless of ByteOrder. The runtime codec package
// uses this to extract and pack raw values.
func (s Signal) Bits() ([]int, error) { return s.occupiedBits() }

// Message is one CAN frame description with its packed signals.
type Message struct {
	ID      uint32
	Name    string
	Dlc     uint8
	Sender  string
	signals []Signal
}

// Signals returns the message's signals in declared order. The returned
// slice must not be mutated.
func (m Message) Signals() []Signal { return m.signals }

// Signal looks up a signal by name within this message.
func (m Message) Signal(name string) (Signal, bool) {
	for _, s := range m.signals {
		if s.Name == name {
			return s, true
		}
	}
	return Signal{}, false
}

// IsExtended reports whether ID carries the 29-bit-extended marker bit.
func (m Message) IsExtended() bool { return m.ID&extendedIDFlag != 0 }

// RawID returns the ID with the extended marker bit cleared.
func (m Message) RawID() uint32 { return m.ID &^ extendedIDFlag }

// IsPseudo reports whether this is the VECTOR__INDEPENDENT_SIG_MSG
// container for orphan signals.
func (m Message) IsPseudo() bool { return m.Name == PseudoMessageName }

// EncodeExtendedID ORs in the extended-CAN marker bit, for callers
// who hold a raw 29-bit ID plus an is_extended flag.
func EncodeExtendedID(rawID uint32, isExtended bool) uint32 {
	if isExtended {
		return rawID | extendedIDFlag
	}
	return rawID
}

// Messages is the ordered, ID-unique collection owned by a Dbc, backed by a
// storage.Sequence. A u32-id-to-position index is built lazily on first
// lookup; if it were ever to fail to build the zero value simply falls back
// to a linear scan, so a missing index is never a correctness problem.
type Messages struct {
	seq *storage.Sequence[Message]

	once sync.Once
	idx  map[uint32]int
}

// NewMessages wraps an already ID/name-unique, already-validated slice of
// messages. Use DbcBuilder to construct one with validation; the cap is
// enforced earlier, by DbcBuilder.AddMessage, so this wrap is unlimited.
func NewMessages(list []Message) *Messages {
	seq, _ := storage.SequenceFrom("messages", 0, list) // limit 0: cannot fail
	return &Messages{seq: seq}
}

// Len returns the number of messages.
func (m *Messages) Len() int {
	if m == nil {
		return 0
	}
	return m.seq.Len()
}

// All returns the messages in stored order. Must not be mutated.
func (m *Messages) All() []Message {
	if m == nil {
		return nil
	}
	return m.seq.All()
}

func (m *Messages) ensureIndex() {
	m.once.Do(func() {
		list := m.seq.All()
		idx := make(map[uint32]int, len(list))
		for i, msg := range list {
			idx[msg.ID] = i
		}
		m.idx = idx
	})
}

// FindByID looks up a message by its stored ID (already OR-ed with the
// extended marker bit if applicable).
func (m *Messages) FindByID(id uint32) (Message, bool) {
	if m == nil {
		return Message{}, false
	}
	m.ensureIndex()
	list := m.seq.All()
	if m.idx != nil {
		if i, ok := m.idx[id]; ok {
			return list[i], true
		}
		return Message{}, false
	}
	for _, msg := range list {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

// FindByName looks up a message by name with a linear scan (names are not
// indexed; this is not expected to be a hot path).
func (m *Messages) FindByName(name string) (Message, bool) {
	if m == nil {
		return Message{}, false
	}
	for _, msg := range m.seq.All() {
		if msg.Name == name {
			return msg, true
		}
	}
	return Message{}, false
}

// ValueDescription is one raw-value-to-label entry of a VAL_ table.
type ValueDescription struct {
	Value uint64
	Label string
}

// ValueDescriptions is the ordered table of raw-value-to-label mappings
// for one signal, backed by a storage.Sequence. Insertion order is
// preserved for iteration; the serializer sorts by Value on output.
type ValueDescriptions struct {
	seq *storage.Sequence[ValueDescription]
}

// NewValueDescriptions validates and wraps entries, enforcing the
// per-signal cap.
func NewValueDescriptions(entries []ValueDescription, maxPerSignal int) (ValueDescriptions, error) {
	seq, err := storage.SequenceFrom("value-descriptions", maxPerSignal, entries)
	if err != nil {
		return ValueDescriptions{}, capacityErr(err, 0)
	}
	return ValueDescriptions{seq: seq}, nil
}

// Entries returns the value descriptions in insertion order.
func (vd ValueDescriptions) Entries() []ValueDescription { return vd.seq.All() }

// Label looks up the label for a raw value.
func (vd ValueDescriptions) Label(v uint64) (string, bool) {
	for _, e := range vd.seq.All() {
		if e.Value == v {
			return e.Label, true
		}
	}
	return "", false
}

// SignalKey identifies a signal within a Dbc by (message ID, signal name),
// used by the VAL_ and SG_MUL_VAL_ side-tables instead of back-pointers.
type SignalKey struct {
	MessageID uint32
	Signal    string
}

// ExtendedMultiplexRange is one inclusive [Lo, Hi] switch-value range.
type ExtendedMultiplexRange struct {
	Lo, Hi uint32
}

// Contains reports whether v falls in [Lo, Hi].
func (r ExtendedMultiplexRange) Contains(v uint32) bool { return v >= r.Lo && v <= r.Hi }

// ExtendedMultiplexing is one SG_MUL_VAL_ entry: the switch-value ranges
// that enable a multiplexed signal.
type ExtendedMultiplexing struct {
	MessageID         uint32
	MultiplexedSignal string
	SwitchSignal      string
	Ranges            []ExtendedMultiplexRange
}

// Active reports whether switchValue enables this entry's signal.
func (e ExtendedMultiplexing) Active(switchValue uint32) bool {
	for _, r := range e.Ranges {
		if r.Contains(switchValue) {
			return true
		}
	}
	return false
}

// Dbc is the top-level, immutable composition of a parsed or built CAN
// database. Dbc owns all contained entities exclusively; there are no
// shared or cyclic references.
type Dbc struct {
	Version  Version
	Nodes    Nodes
	Messages *Messages

	// valueDescriptions and extendedMuxing are owned by Dbc and reference
	// messages/signals by SignalKey rather than back-pointers.
	valueDescriptions map[SignalKey]ValueDescriptions
	extendedMuxing    *storage.Sequence[ExtendedMultiplexing]
}

// ValueDescriptionsFor returns the VAL_ table declared for (messageID,
// signalName), if any.
func (d *Dbc) ValueDescriptionsFor(messageID uint32, signalName string) (ValueDescriptions, bool) {
	vd, ok := d.valueDescriptions[SignalKey{MessageID: messageID, Signal: signalName}]
	return vd, ok
}

// ExtendedMultiplexingFor returns all SG_MUL_VAL_ entries declared for
// (messageID, multiplexedSignalName).
func (d *Dbc) ExtendedMultiplexingFor(messageID uint32, multiplexedSignal string) []ExtendedMultiplexing {
	var out []ExtendedMultiplexing
	for _, e := range d.extendedMuxing.All() {
		if e.MessageID == messageID && e.MultiplexedSignal == multiplexedSignal {
			out = append(out, e)
		}
	}
	return out
}

// AllExtendedMultiplexing returns every SG_MUL_VAL_ entry, in declared
// order.
func (d *Dbc) AllExtendedMultiplexing() []ExtendedMultiplexing { return d.extendedMuxing.All() }

// AllValueDescriptions returns the full side-table, keyed by SignalKey.
// The returned map must not be mutated.
func (d *Dbc) AllValueDescriptions() map[SignalKey]ValueDescriptions { return d.valueDescriptions }

// FindMessage looks up a message by ID.
func (d *Dbc) FindMessage(id uint32) (Message, bool) { return d.Messages.FindByID(id) }

// FindMessageByName looks up a message by name, a supplemented convenience
// alongside the ID-keyed FindMessage.
func (d *Dbc) FindMessageByName(name string) (Message, bool) { return d.Messages.FindByName(name) }
