package godbc

import "strings"

// topLevelKeywords are the section keywords that can open a new top-level
// entity. The parser does not consult this table: parseNS ends the NS_
// block at the first line that is not indented.
var topLevelKeywords = map[string]bool{
	"VERSION": true, "NS_": true, "BS_": true, "BU_": true, "BO_": true,
	"VAL_TABLE_": true, "VAL_": true, "SIG_VALTYPE_": true, "SG_MUL_VAL_": true,
	"CM_": true, "BA_": true, "BA_DEF_": true, "BA_DEF_DEF_": true,
	"EV_": true, "SGTYPE_": true, "SIG_GROUP_": true, "BO_TX_BU_": true,
}

// signalDraft is the mutable, in-progress form of a signal while parsing.
// It becomes an immutable Signal only once the whole file has been read
// and any SIG_VALTYPE_ override has been applied.
type signalDraft struct {
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
	line      int
}

// messageDraft is the mutable, in-progress form of a message.
type messageDraft struct {
	id      uint32
	name    string
	dlc     uint8
	sender  string
	signals []*signalDraft
	line    int
}

func (md *messageDraft) signal(name string) *signalDraft {
	for _, s := range md.signals {
		if s.name == name {
			return s
		}
	}
	return nil
}

type pendingValueDescription struct {
	messageID uint32
	signal    string
	entries   []ValueDescription
}

type pendingValueType struct {
	messageID uint32
	signal    string
	valueType ValueType
}

// parser drives the scanner through the DBC grammar, accumulating
// mutable drafts. Entities may reference each other regardless of section
// order, so nothing is finalized into the immutable Dbc until finalize
// runs after the whole input has been scanned.
type parser struct {
	sc   *scanner
	opts Options

	version   Version
	nodeNames []string

	messages    []*messageDraft
	messageByID map[uint32]*messageDraft

	valueDescs         []pendingValueDescription
	valueTypeOverrides []pendingValueType
	extMux             []ExtendedMultiplexing
}

// Parse parses a DBC file under the default Options.
func Parse(data []byte) (*Dbc, error) {
	return ParseWithOptions(data, DefaultOptions())
}

// ParseWithOptions parses a DBC file, applying opts's size limits and
// leniency settings, and returns the validated, immutable Dbc.
func ParseWithOptions(data []byte, opts Options) (*Dbc, error) {
	p := &parser{sc: newScanner(data), opts: opts, messageByID: make(map[uint32]*messageDraft)}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.finalize()
}

func (p *parser) peekKeyword() string {
	s := p.sc
	i := s.pos
	for i < len(s.data) && (isAlpha(s.data[i]) || isDigit(s.data[i]) || s.data[i] == '_') {
		i++
	}
	return string(s.data[s.pos:i])
}

func (p *parser) run() error {
	for {
		p.sc.skipInsignificant()
		if p.sc.atEOF() {
			return nil
		}
		switch kw := p.peekKeyword(); kw {
		case "VERSION":
			if err := p.parseVersion(); err != nil {
				return err
			}
		case "NS_":
			if err := p.parseNS(); err != nil {
				return err
			}
		case "BS_":
			if err := p.parseBS(); err != nil {
				return err
			}
		case "BU_":
			if err := p.parseBU(); err != nil {
				return err
			}
		case "BO_":
			if err := p.parseBO(); err != nil {
				return err
			}
		case "VAL_":
			if err := p.parseVAL(); err != nil {
				return err
			}
		case "SIG_VALTYPE_":
			if err := p.parseSigValType(); err != nil {
				return err
			}
		case "SG_MUL_VAL_":
			if err := p.parseSGMULVAL(); err != nil {
				return err
			}
		case "":
			return p.sc.fail(KindExpected, "unrecognized input")
		default:
			// VAL_TABLE_, CM_, BA_, BA_DEF_, BA_DEF_DEF_, EV_, SGTYPE_,
			// SIG_GROUP_, BO_TX_BU_ and anything else unknown are
			// recognized, skipped, and otherwise ignored.
			if err := p.skipUnknownSection(); err != nil {
				return err
			}
		}
	}
}

func (p *parser) parseVersion() error {
	if err := p.sc.expectString("VERSION"); err != nil {
		return err
	}
	p.sc.skipWhitespace()
	v, err := p.sc.takeQuotedString()
	if err != nil {
		return err
	}
	p.version = NewVersion(v)
	return nil
}

// parseNS consumes the NS_ block, which lists one attribute-namespace
// keyword per indented line and ends at the first line that is not
// indented. The contents themselves are not modeled beyond being skipped.
func (p *parser) parseNS() error {
	if err := p.sc.expectString("NS_"); err != nil {
		return err
	}
	p.sc.skipWhitespace()
	if err := p.sc.expect(':'); err != nil {
		return err
	}
	p.sc.consumeLine()
	for !p.sc.atEOF() {
		if p.sc.isBlankLineAhead() {
			p.sc.consumeLine()
			continue
		}
		if p.sc.currentLineIndented() {
			p.sc.consumeLine()
			continue
		}
		break
	}
	return nil
}

// parseBS consumes the bus speed line. Bus timing is explicitly out of
// scope (Non-goals), so only the section is recognized and skipped.
func (p *parser) parseBS() error {
	if err := p.sc.expectString("BS_"); err != nil {
		return err
	}
	p.sc.skipWhitespace()
	if err := p.sc.expect(':'); err != nil {
		return err
	}
	p.sc.consumeLine()
	return nil
}

func (p *parser) parseBU() error {
	if err := p.sc.expectString("BU_"); err != nil {
		return err
	}
	p.sc.skipWhitespace()
	if err := p.sc.expect(':'); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(p.sc.takeUntilEOL()))
	p.sc.consumeLine()
	if raw == "" {
		return nil
	}
	p.nodeNames = append(p.nodeNames, strings.Fields(raw)...)
	return nil
}

func (p *parser) parseBO() error {
	line := p.sc.line
	if err := p.sc.expectString("BO_"); err != nil {
		return err
	}
	p.sc.skipWhitespace()
	id64, err := p.sc.takeUnsigned()
	if err != nil {
		return err
	}
	p.sc.skipWhitespace()
	name, err := p.sc.takeIdentifier()
	if err != nil {
		return err
	}
	p.sc.skipWhitespace()
	if err := p.sc.expect(':'); err != nil {
		return err
	}
	p.sc.skipWhitespace()
	dlc, err := p.sc.takeUnsigned()
	if err != nil {
		return err
	}
	p.sc.skipWhitespace()
	sender, err := p.sc.takeIdentifier()
	if err != nil {
		return err
	}

	md := &messageDraft{id: uint32(id64), name: name, dlc: uint8(dlc), sender: sender, line: line}
	if _, dup := p.messageByID[md.id]; dup {
		return newErr(KindDuplicateID, line, "", "id", md.id)
	}
	p.messageByID[md.id] = md
	p.messages = append(p.messages, md)

	for {
		p.sc.skipInsignificant()
		if p.peekKeyword() != "SG_" {
			return nil
		}
		sd, err := p.parseSG()
		if err != nil {
			return err
		}
		if md.signal(sd.name) != nil {
			return newErr(KindDuplicateName, sd.line, "", "name", sd.name)
		}
		md.signals = append(md.signals, sd)
	}
}

func (p *parser) parseSG() (*signalDraft, error) {
	line := p.sc.line
	if err := p.sc.expectString("SG_"); err != nil {
		return nil, err
	}
	p.sc.skipWhitespace()
	name, err := p.sc.takeIdentifier()
	if err != nil {
		return nil, err
	}
	p.sc.skipWhitespace()

	mux := Plain()
	if b, ok := p.sc.peekByte(); ok && b == 'M' {
		p.sc.advance()
		mux = Switch()
		p.sc.skipWhitespace()
	} else if ok && b == 'm' {
		p.sc.advance()
		v, err := p.sc.takeUnsigned()
		if err != nil {
			return nil, err
		}
		mux = Multiplexed(uint32(v))
		p.sc.skipWhitespace()
	}

	if err := p.sc.expect(':'); err != nil {
		return nil, err
	}
	p.sc.skipWhitespace()
	startBit, err := p.sc.takeUnsigned()
	if err != nil {
		return nil, err
	}
	if err := p.sc.expect('|'); err != nil {
		return nil, err
	}
	length, err := p.sc.takeUnsigned()
	if err != nil {
		return nil, err
	}
	if err := p.sc.expect('@'); err != nil {
		return nil, err
	}
	orderDigit, err := p.sc.takeUnsigned()
	if err != nil {
		return nil, err
	}
	order := BigEndian
	if orderDigit == 1 {
		order = LittleEndian
	}
	signByte, ok := p.sc.advance()
	if !ok {
		return nil, p.sc.fail(KindUnexpectedEOF, "")
	}
	if signByte != '+' && signByte != '-' {
		return nil, p.sc.fail(KindExpected, "expected '+' or '-' sign marker")
	}
	unsigned := signByte == '+'

	p.sc.skipWhitespace()
	if err := p.sc.expect('('); err != nil {
		return nil, err
	}
	factor, err := p.sc.takeDouble()
	if err != nil {
		return nil, err
	}
	if err := p.sc.expect(','); err != nil {
		return nil, err
	}
	offset, err := p.sc.takeDouble()
	if err != nil {
		return nil, err
	}
	if err := p.sc.expect(')'); err != nil {
		return nil, err
	}

	p.sc.skipWhitespace()
	if err := p.sc.expect('['); err != nil {
		return nil, err
	}
	min, err := p.sc.takeDouble()
	if err != nil {
		return nil, err
	}
	if err := p.sc.expect('|'); err != nil {
		return nil, err
	}
	max, err := p.sc.takeDouble()
	if err != nil {
		return nil, err
	}
	if err := p.sc.expect(']'); err != nil {
		return nil, err
	}

	p.sc.skipWhitespace()
	unit, err := p.sc.takeQuotedString()
	if err != nil {
		return nil, err
	}

	p.sc.skipWhitespace()
	raw := strings.TrimSpace(string(p.sc.takeUntilEOL()))
	p.sc.consumeLine()

	receivers, err := p.parseReceivers(raw, line)
	if err != nil {
		return nil, err
	}

	return &signalDraft{
		name: name, startBit: uint16(startBit), length: uint16(length), order: order,
		unsigned: unsigned, factor: factor, offset: offset, min: min, max: max,
		unit: unit, receivers: receivers, mux: mux, valueType: ValueTypeInteger, line: line,
	}, nil
}

func (p *parser) parseReceivers(raw string, line int) (Receivers, error) {
	if raw == "" {
		return Receivers{Kind: ReceiverNone}, nil
	}
	if raw == BroadcastNode {
		return Broadcast(), nil
	}
	var names []string
	if p.opts.AcceptSpaceSeparatedReceivers {
		names = strings.Fields(strings.ReplaceAll(raw, ",", " "))
	} else {
		for _, n := range strings.Split(raw, ",") {
			names = append(names, strings.TrimSpace(n))
		}
	}
	if len(names) == 0 {
		return Receivers{Kind: ReceiverNone}, nil
	}
	r, err := NodeReceivers(names, p.opts.Limits.MaxReceiverNodes)
	if err != nil {
		return Receivers{}, withLine(err, line)
	}
	return r, nil
}

func (p *parser) parseVAL() error {
	line := p.sc.line
	if err := p.sc.expectString("VAL_"); err != nil {
		return err
	}
	p.sc.skipWhitespace()
	id64, err := p.sc.takeUnsigned()
	if err != nil {
		return err
	}
	p.sc.skipWhitespace()
	name, err := p.sc.takeIdentifier()
	if err != nil {
		return err
	}

	var entries []ValueDescription
	for {
		p.sc.skipWhitespace()
		if b, ok := p.sc.peekByte(); ok && b == ';' {
			p.sc.advance()
			break
		}
		val, err := p.sc.takeUnsigned()
		if err != nil {
			return err
		}
		p.sc.skipWhitespace()
		label, err := p.sc.takeQuotedString()
		if err != nil {
			return err
		}
		entries = append(entries, ValueDescription{Value: val, Label: label})
	}
	p.sc.consumeLine()

	p.valueDescs = append(p.valueDescs, pendingValueDescription{
		messageID: uint32(id64), signal: name, entries: entries,
	})
	_ = line
	return nil
}

func (p *parser) parseSigValType() error {
	if err := p.sc.expectString("SIG_VALTYPE_"); err != nil {
		return err
	}
	p.sc.skipWhitespace()
	id64, err := p.sc.takeUnsigned()
	if err != nil {
		return err
	}
	p.sc.skipWhitespace()
	name, err := p.sc.takeIdentifier()
	if err != nil {
		return err
	}
	p.sc.skipWhitespace()
	if err := p.sc.expect(':'); err != nil {
		return err
	}
	p.sc.skipWhitespace()
	typeVal, err := p.sc.takeUnsigned()
	if err != nil {
		return err
	}
	p.sc.skipWhitespace()
	if err := p.sc.expect(';'); err != nil {
		return err
	}

	vt := ValueTypeInteger
	switch typeVal {
	case 1:
		vt = ValueTypeFloat32
	case 2:
		vt = ValueTypeFloat64
	}
	p.valueTypeOverrides = append(p.valueTypeOverrides, pendingValueType{
		messageID: uint32(id64), signal: name, valueType: vt,
	})
	return nil
}

func (p *parser) parseSGMULVAL() error {
	line := p.sc.line
	if err := p.sc.expectString("SG_MUL_VAL_"); err != nil {
		return err
	}
	p.sc.skipWhitespace()
	id64, err := p.sc.takeUnsigned()
	if err != nil {
		return err
	}
	p.sc.skipWhitespace()
	muxSignal, err := p.sc.takeIdentifier()
	if err != nil {
		return err
	}
	p.sc.skipWhitespace()
	switchSignal, err := p.sc.takeIdentifier()
	if err != nil {
		return err
	}
	p.sc.skipWhitespace()

	var ranges []ExtendedMultiplexRange
	for {
		lo, err := p.sc.takeUnsigned()
		if err != nil {
			return err
		}
		if err := p.sc.expect('-'); err != nil {
			return err
		}
		hi, err := p.sc.takeUnsigned()
		if err != nil {
			return err
		}
		ranges = append(ranges, ExtendedMultiplexRange{Lo: uint32(lo), Hi: uint32(hi)})
		p.sc.skipWhitespace()
		b, ok := p.sc.peekByte()
		if !ok {
			return p.sc.fail(KindUnexpectedEOF, "")
		}
		if b == ',' {
			p.sc.advance()
			p.sc.skipWhitespace()
			continue
		}
		if b == ';' {
			p.sc.advance()
			break
		}
		return p.sc.fail(KindExpected, "expected ',' or ';' in SG_MUL_VAL_ range list")
	}
	p.sc.consumeLine()

	p.extMux = append(p.extMux, ExtendedMultiplexing{
		MessageID: uint32(id64), MultiplexedSignal: muxSignal, SwitchSignal: switchSignal, Ranges: ranges,
	})
	_ = line
	return nil
}

// skipUnknownSection discards an unrecognized (to this library) section:
// attribute definitions, comments, and anything else outside scope. It
// scans quote-aware for the terminating ';', tolerating embedded newlines
// in quoted comment text.
func (p *parser) skipUnknownSection() error {
	inQuote := false
	for {
		b, ok := p.sc.advance()
		if !ok {
			return nil
		}
		if inQuote {
			if b == '\\' {
				p.sc.advance()
				continue
			}
			if b == '"' {
				inQuote = false
			}
			continue
		}
		switch b {
		case '"':
			inQuote = true
		case ';':
			return nil
		}
	}
}

// finalize applies SIG_VALTYPE_ overrides, builds every message, and
// attaches VAL_/SG_MUL_VAL_ side-tables, then runs the full Validator.
func (p *parser) finalize() (*Dbc, error) {
	for _, ov := range p.valueTypeOverrides {
		md, ok := p.messageByID[ov.messageID]
		if !ok {
			return nil, newErr(KindValidation, 0, "SIG_VALTYPE_ references an unknown message id", "id", ov.messageID)
		}
		sd := md.signal(ov.signal)
		if sd == nil {
			return nil, newErr(KindValidation, 0, "SIG_VALTYPE_ references an unknown signal", "name", ov.signal)
		}
		sd.valueType = ov.valueType
	}

	nodes, err := NewNodes(p.nodeNames, p.opts.Limits.MaxNameSize, p.opts.Limits.MaxNodes)
	if err != nil {
		return nil, err
	}

	b := NewDbcBuilder(p.opts)
	b.Version(p.version)
	b.Nodes(nodes)

	for _, md := range p.messages {
		signals := make([]Signal, 0, len(md.signals))
		for _, sd := range md.signals {
			sig, err := buildSignal(p.opts.Limits, sd.name, sd.startBit, sd.length, sd.order, sd.unsigned,
				sd.factor, sd.offset, sd.min, sd.max, sd.unit, sd.receivers, sd.mux, sd.valueType, sd.line)
			if err != nil {
				return nil, err
			}
			signals = append(signals, sig)
		}
		msg, err := buildMessage(p.opts.Limits, md.id, md.name, md.dlc, md.sender, signals, md.line)
		if err != nil {
			return nil, err
		}
		if err := b.AddMessage(msg); err != nil {
			return nil, err
		}
	}

	for _, pv := range p.valueDescs {
		vd, err := NewValueDescriptions(pv.entries, p.opts.Limits.MaxValueDescriptions)
		if err != nil {
			return nil, err
		}
		b.AddValueDescriptions(pv.messageID, pv.signal, vd)
	}
	for _, e := range p.extMux {
		if err := b.AddExtendedMultiplexing(e); err != nil {
			return nil, err
		}
	}

	return b.Build()
}
