package wire

// Sink receives messages in the exact order they are emitted.
type Sink interface {
	Send(msg Message)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(msg Message)

// Send calls f(msg)
func (f SinkFunc) Send(msg Message) {
	f(msg)
}

// Recorder is a Sink that keeps every message it receives.
type Recorder struct {
	messages []Message
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send appends msg
func (r *Recorder) Send(msg Message) {
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of everything recorded so far
func (r *Recorder) Messages() []Message {
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Ops returns the opcodes recorded so far, in order
func (r *Recorder) Ops() []Opcode {
	ops := make([]Opcode, len(r.messages))
	for i, m := range r.messages {
		ops[i] = m.Op
	}
	return ops
}

// Filter returns the recorded messages whose opcode is one of ops
func (r *Recorder) Filter(ops ...Opcode) []Message {
	var out []Message
	for _, m := range r.messages {
		for _, op := range ops {
			if m.Op == op {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// Reset drops everything recorded
func (r *Recorder) Reset() {
	r.messages = nil
}

// Len returns the number of recorded messages
func (r *Recorder) Len() int {
	return len(r.messages)
}

// Tee sends every message to each of sinks in order. Nil sinks are skipped.
func Tee(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(msg Message) {
		for _, s := range live {
			s.Send(msg)
		}
	})
}
