package godbc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ToText renders dbc back to canonical DBC text. Messages are emitted in
// their stored order (declaration order for a parsed file, insertion order
// for a builder-assembled one) so ToText followed by Parse round-trips a
// Dbc's Messages.All() order exactly; only the side-tables (value
// descriptions, SIG_VALTYPE_ overrides, extended multiplexing), which carry
// no order of their own, are sorted for deterministic output.
//
// Comments and attributes are never emitted (Non-goals): ToText followed
// by Parse reproduces every entity this package models, not necessarily
// the original file's byte-for-byte layout.
func ToText(dbc *Dbc) string {
	var b strings.Builder

	if !dbc.Version.IsEmpty() {
		fmt.Fprintf(&b, "VERSION %q\n\n", dbc.Version.String())
	} else {
		b.WriteString("VERSION \"\"\n\n")
	}
	b.WriteString("BS_:\n\n")
	fmt.Fprintf(&b, "BU_: %s\n\n", strings.Join(dbc.Nodes.All(), " "))

	for _, m := range dbc.Messages.All() {
		writeMessage(&b, m)
	}

	writeValueDescriptions(&b, dbc)
	writeSignalValueTypes(&b, dbc)
	writeExtendedMultiplexing(&b, dbc)

	return b.String()
}

func writeMessage(b *strings.Builder, m Message) {
	fmt.Fprintf(b, "BO_ %d %s: %d %s\n", m.ID, m.Name, m.Dlc, senderOrDefault(m.Sender))
	for _, s := range m.Signals() {
		writeSignal(b, s)
	}
	b.WriteString("\n")
}

func senderOrDefault(sender string) string {
	if sender == "" {
		return BroadcastNode
	}
	return sender
}

func writeSignal(b *strings.Builder, s Signal) {
	b.WriteString(" SG_ ")
	b.WriteString(s.Name)
	switch s.Multiplex.Kind {
	case MultiplexSwitch:
		b.WriteString(" M")
	case MultiplexMultiplexed:
		fmt.Fprintf(b, " m%d", s.Multiplex.Value)
	}
	b.WriteString(" : ")

	order := 0
	if s.ByteOrder == LittleEndian {
		order = 1
	}
	sign := '+'
	if !s.Unsigned {
		sign = '-'
	}
	fmt.Fprintf(b, "%d|%d@%d%c (%s,%s) [%s|%s] %q %s\n",
		s.StartBit, s.Length, order, sign,
		formatFloat(s.Factor), formatFloat(s.Offset),
		formatFloat(s.Min), formatFloat(s.Max),
		s.Unit, receiversText(s.Receivers))
}

func receiversText(r Receivers) string {
	switch r.Kind {
	case ReceiverBroadcast:
		return BroadcastNode
	case ReceiverNodeList:
		return strings.Join(r.Nodes, ",")
	default:
		return BroadcastNode
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeValueDescriptions(b *strings.Builder, dbc *Dbc) {
	keys := make([]SignalKey, 0, len(dbc.valueDescriptions))
	for k := range dbc.valueDescriptions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].MessageID != keys[j].MessageID {
			return keys[i].MessageID < keys[j].MessageID
		}
		return keys[i].Signal < keys[j].Signal
	})
	for _, k := range keys {
		vd := dbc.valueDescriptions[k]
		entries := append([]ValueDescription(nil), vd.Entries()...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Value < entries[j].Value })

		fmt.Fprintf(b, "VAL_ %d %s", k.MessageID, k.Signal)
		for _, e := range entries {
			fmt.Fprintf(b, " %d %q", e.Value, e.Label)
		}
		b.WriteString(" ;\n")
	}
	if len(keys) > 0 {
		b.WriteString("\n")
	}
}

func writeSignalValueTypes(b *strings.Builder, dbc *Dbc) {
	messages := append([]Message(nil), dbc.Messages.All()...)
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })

	wrote := false
	for _, m := range messages {
		for _, s := range m.Signals() {
			if s.ValueType == ValueTypeInteger {
				continue
			}
			t := 1
			if s.ValueType == ValueTypeFloat64 {
				t = 2
			}
			fmt.Fprintf(b, "SIG_VALTYPE_ %d %s : %d;\n", m.ID, s.Name, t)
			wrote = true
		}
	}
	if wrote {
		b.WriteString("\n")
	}
}

func writeExtendedMultiplexing(b *strings.Builder, dbc *Dbc) {
	entries := append([]ExtendedMultiplexing(nil), dbc.extendedMuxing.All()...)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].MessageID != entries[j].MessageID {
			return entries[i].MessageID < entries[j].MessageID
		}
		return entries[i].MultiplexedSignal < entries[j].MultiplexedSignal
	})
	for _, e := range entries {
		fmt.Fprintf(b, "SG_MUL_VAL_ %d %s %s ", e.MessageID, e.MultiplexedSignal, e.SwitchSignal)
		for i, r := range e.Ranges {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(b, "%d-%d", r.Lo, r.Hi)
		}
		b.WriteString(";\n")
	}
}
