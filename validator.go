package godbc

// Validate runs the cross-entity invariants over an already
// internally-consistent Dbc: per-message invariants (unique signal names,
// bit ranges, overlap) are enforced at construction time by buildMessage,
// and message ID/name uniqueness by DbcBuilder.AddMessage, so
// Validate focuses on checks that need the whole Dbc in view at once —
// sender validity and the VAL_/SIG_VALTYPE_/SG_MUL_VAL_ side-table
// cross-references. It is run automatically by DbcBuilder.Build and by the
// parser's finalize step, and is exported so a caller constructing a Dbc by
// hand (or after mutating one via the builder "read, reseed, rebuild"
// pattern) can re-check it explicitly.
func Validate(d *Dbc, opts Options) error {
	for _, m := range d.Messages.All() {
		if m.IsPseudo() {
			continue
		}
		if !opts.AllowUnknownSender {
			if m.Sender != BroadcastNode && !d.Nodes.Contains(m.Sender) {
				return newErr(KindValidation, 0, "message sender is not a declared node", "name", m.Sender)
			}
		}
		for _, s := range m.Signals() {
			if s.Receivers.Kind == ReceiverNodeList && !opts.AllowUnknownSender {
				for _, r := range s.Receivers.Nodes {
					if !d.Nodes.Contains(r) {
						return newErr(KindValidation, 0, "signal receiver is not a declared node", "name", r)
					}
				}
			}
		}
	}

	for key := range d.valueDescriptions {
		msg, ok := d.Messages.FindByID(key.MessageID)
		if !ok {
			return newErr(KindValidation, 0, "VAL_ references an unknown message id", "id", key.MessageID)
		}
		if _, ok := msg.Signal(key.Signal); !ok {
			return newErr(KindValidation, 0, "VAL_ references an unknown signal", "name", key.Signal)
		}
	}

	// The MaxExtendedMultiplexing cap itself is enforced earlier, at
	// DbcBuilder.AddExtendedMultiplexing, by the same storage.Sequence
	// every other bounded container uses.
	for _, e := range d.extendedMuxing.All() {
		msg, ok := d.Messages.FindByID(e.MessageID)
		if !ok {
			return newErr(KindValidation, 0, "SG_MUL_VAL_ references an unknown message id", "id", e.MessageID)
		}
		muxSig, ok := msg.Signal(e.MultiplexedSignal)
		if !ok {
			return newErr(KindValidation, 0, "SG_MUL_VAL_ references an unknown multiplexed signal", "name", e.MultiplexedSignal)
		}
		if muxSig.Multiplex.Kind != MultiplexMultiplexed {
			return newErr(KindValidation, 0, "SG_MUL_VAL_ target signal is not multiplexed", "name", e.MultiplexedSignal)
		}
		switchSig, ok := msg.Signal(e.SwitchSignal)
		if !ok {
			return newErr(KindValidation, 0, "SG_MUL_VAL_ references an unknown switch signal", "name", e.SwitchSignal)
		}
		if switchSig.Multiplex.Kind != MultiplexSwitch {
			return newErr(KindValidation, 0, "SG_MUL_VAL_ switch reference is not a multiplexer switch signal", "name", e.SwitchSignal)
		}
		for _, r := range e.Ranges {
			if r.Lo > r.Hi {
				return newErr(KindValidation, 0, "SG_MUL_VAL_ range has lo greater than hi", "name", e.MultiplexedSignal)
			}
		}
	}

	return nil
}

// Validate re-checks d's cross-entity invariants under the default
// Options, for a Dbc assembled by hand or reached via the builder's
// "read, reseed, rebuild" pattern rather than through Parse. Build already
// runs this; callers that need non-default Options (relaxed sender
// checking, tighter limits) should call the free Validate function instead.
func (d *Dbc) Validate() error {
	return Validate(d, DefaultOptions())
}
