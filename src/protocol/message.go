package protocol

import (
	"bytes"
	"fmt"

	"github.com/ugorji/go/codec"
)

// MessageType is the tag of a protocol message.
type MessageType uint8

const (
	// Connect asks the receiver to join fragments over the edge.
	Connect MessageType = iota
	// Initiate broadcasts a fragment's identity, level and state.
	Initiate
	// Test probes whether an edge leads out of the fragment.
	Test
	// Report carries a subtree's best outgoing weight up to the core.
	Report
	// Accept answers a Test across distinct fragments.
	Accept
	// Reject answers a Test within the same fragment.
	Reject
	// ChangeRoot moves the fragment root towards the best edge.
	ChangeRoot
	// Terminate spreads the elected leader and halts the tree.
	Terminate
)

// String returns the wire name of the tag, as it appears in traces.
func (t MessageType) String() string {
	switch t {
	case Connect:
		return "CONNECT"
	case Initiate:
		return "INITIATE"
	case Test:
		return "TEST"
	case Report:
		return "REPORT"
	case Accept:
		return "ACCEPT"
	case Reject:
		return "REJECT"
	case ChangeRoot:
		return "CHANGE_ROOT"
	case Terminate:
		return "TERMINATE"
	default:
		return "UNKNOWN"
	}
}

func (t MessageType) label() string {
	switch t {
	case Connect:
		return "Connect"
	case Initiate:
		return "Initiate"
	case Test:
		return "Test"
	case Report:
		return "Report"
	case Accept:
		return "Accept"
	case Reject:
		return "Reject"
	case ChangeRoot:
		return "Change Root"
	case Terminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is one of the eight protocol tags.
func (t MessageType) Valid() bool {
	return t <= Terminate
}

// Message is the tagged union of all protocol messages. Only the fields
// relevant to Type are meaningful:
//
//  CONNECT(Level)
//  INITIATE(Level, FragmentID, State)
//  TEST(Level, FragmentID)
//  REPORT(BestWeight)
//  ACCEPT, REJECT, CHANGE_ROOT
//  TERMINATE(Leader)
//
// Messages are passed by value and never modified after being sent.
type Message struct {
	Type       MessageType `codec:"type"`
	Source     int         `codec:"source"`
	Level      int         `codec:"level"`
	FragmentID int         `codec:"fragment_id"`
	State      NodeState   `codec:"state"`
	BestWeight int         `codec:"best_weight"`
	Leader     int         `codec:"leader"`
}

// NewConnect ...
func NewConnect(source, level int) Message {
	return Message{Type: Connect, Source: source, Level: level}
}

// NewInitiate ...
func NewInitiate(source, level, fragmentID int, state NodeState) Message {
	return Message{
		Type:       Initiate,
		Source:     source,
		Level:      level,
		FragmentID: fragmentID,
		State:      state,
	}
}

// NewTest ...
func NewTest(source, level, fragmentID int) Message {
	return Message{Type: Test, Source: source, Level: level, FragmentID: fragmentID}
}

// NewReport ...
func NewReport(source, bestWeight int) Message {
	return Message{Type: Report, Source: source, BestWeight: bestWeight}
}

// NewAccept ...
func NewAccept(source int) Message {
	return Message{Type: Accept, Source: source}
}

// NewReject ...
func NewReject(source int) Message {
	return Message{Type: Reject, Source: source}
}

// NewChangeRoot ...
func NewChangeRoot(source int) Message {
	return Message{Type: ChangeRoot, Source: source}
}

// NewTerminate ...
func NewTerminate(source, leader int) Message {
	return Message{Type: Terminate, Source: source, Leader: leader}
}

// Payload renders the type-specific fields the way they appear in the trace.
func (m Message) Payload() string {
	switch m.Type {
	case Connect:
		return fmt.Sprintf("Level = %d", m.Level)
	case Initiate:
		return fmt.Sprintf("Level = %d, Fragment id = %d, State = %s",
			m.Level, m.FragmentID, m.State)
	case Test:
		return fmt.Sprintf("Level = %d, Fragment id = %d", m.Level, m.FragmentID)
	case Report:
		return fmt.Sprintf("Best weight = %d", m.BestWeight)
	case Terminate:
		return fmt.Sprintf("Leader = %d", m.Leader)
	default:
		return ""
	}
}

// String ...
func (m Message) String() string {
	return fmt.Sprintf("%s from %d {%s}", m.Type, m.Source, m.Payload())
}

// Marshal returns the canonical JSON encoding of the message.
func (m *Message) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(m); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (m *Message) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(m)
}
