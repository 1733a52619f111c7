package trace

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

// Field names carried by trace entries. They are part of the contract with
// the visualisation tooling and must not change.
const (
	NodeField    = "node"
	TagField     = "tag"
	DescField    = "desc"
	PayloadField = "payload"
)

// Emit logs a trace event. Trace events are the Info entries of a logger; all
// other diagnostics are logged at Debug level.
func Emit(logger *logrus.Entry, tag, desc, payload string) {
	logger.WithFields(logrus.Fields{
		TagField:     tag,
		DescField:    desc,
		PayloadField: payload,
	}).Info(tag)
}

// Event is one line of the trace.
type Event struct {
	Time    float64 `codec:"time" json:"time"`
	Node    int     `codec:"node" json:"node"`
	Tag     string  `codec:"tag" json:"tag"`
	Desc    string  `codec:"desc" json:"desc"`
	Payload string  `codec:"payload" json:"payload"`
}

var lineRegexp = regexp.MustCompile(`^\[(\d+\.\d+)\] \[host(-?\d+)\] \[(.*?)\] \((.*?)\) : \{(.*)\}$`)

// String renders the event as a trace line:
//
//  [0.000412] [host3] [CONNECT to 4] (3 -- Connect --> 4) : {Level = 0}
func (e Event) String() string {
	return fmt.Sprintf("[%.6f] [host%d] [%s] (%s) : {%s}", e.Time, e.Node, e.Tag, e.Desc, e.Payload)
}

// ParseLine is the inverse of Event.String.
func ParseLine(line string) (Event, bool) {
	m := lineRegexp.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}

	ts, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Event{}, false
	}
	id, err := strconv.Atoi(m[2])
	if err != nil {
		return Event{}, false
	}

	return Event{
		Time:    ts,
		Node:    id,
		Tag:     m[3],
		Desc:    m[4],
		Payload: m[5],
	}, true
}

// FromEntry extracts a trace event from a logrus entry. Entries that were not
// produced by Emit are ignored.
func FromEntry(entry *logrus.Entry, start time.Time) (Event, bool) {
	tag, ok := entry.Data[TagField].(string)
	if !ok {
		return Event{}, false
	}

	ev := Event{
		Time: entry.Time.Sub(start).Seconds(),
		Node: -1,
		Tag:  tag,
	}
	if id, ok := entry.Data[NodeField].(int); ok {
		ev.Node = id
	}
	if desc, ok := entry.Data[DescField].(string); ok {
		ev.Desc = desc
	}
	if payload, ok := entry.Data[PayloadField].(string); ok {
		ev.Payload = payload
	}
	if ev.Time < 0 {
		ev.Time = 0
	}

	return ev, true
}

// Marshal ...
func (e *Event) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(e); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (e *Event) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(e)
}
