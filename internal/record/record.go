// Package record models one crash-class event log entry.
//
// A Record is the raw XML rendering of an event as the log hands it out.
// Parse derives the structured view: the System header used for filtering
// and the ordered crash Fields shown to the user.
package record

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a record's XML cannot be decoded.
var ErrMalformed = errors.New("malformed event record")

// Record is an immutable snapshot of one event, as XML.
type Record struct {
	raw []byte
}

// New returns a Record holding a copy of raw.
func New(raw []byte) Record {
	return Record{raw: bytes.Clone(raw)}
}

// XML returns the record's raw XML.
func (r Record) XML() string {
	return string(r.raw)
}

// Parse decodes the record. See the package-level Parse.
func (r Record) Parse() (*Event, error) {
	return Parse(r.raw)
}

// Event is the decoded form of a Record.
type Event struct {
	Provider string
	EventID  string
	Level    string
	Channel  string
	Fields   Fields
}

type xmlData struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

type xmlEvent struct {
	XMLName xml.Name `xml:"Event"`
	System  struct {
		Provider struct {
			Name string `xml:"Name,attr"`
		} `xml:"Provider"`
		EventID     string `xml:"EventID"`
		Level       string `xml:"Level"`
		Channel     string `xml:"Channel"`
		TimeCreated *struct {
			SystemTime *string `xml:"SystemTime,attr"`
		} `xml:"TimeCreated"`
		Security *struct {
			UserID *string `xml:"UserID,attr"`
		} `xml:"Security"`
	} `xml:"System"`
	EventData struct {
		Data []xmlData `xml:"Data"`
	} `xml:"EventData"`
}

// Parse decodes an event's XML. Unknown EventData entries are ignored;
// known ones become Fields. Any decoding failure wraps ErrMalformed.
func Parse(raw []byte) (*Event, error) {
	var x xmlEvent
	if err := xml.Unmarshal(raw, &x); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	ev := &Event{
		Provider: x.System.Provider.Name,
		EventID:  x.System.EventID,
		Level:    x.System.Level,
		Channel:  x.System.Channel,
	}

	b := newFieldsBuilder()
	if tc := x.System.TimeCreated; tc != nil && tc.SystemTime != nil {
		b.set(SystemTime, *tc.SystemTime)
	}
	if sec := x.System.Security; sec != nil && sec.UserID != nil {
		b.set(UserID, *sec.UserID)
	}
	for _, d := range x.EventData.Data {
		name := FieldName(d.Name)
		if _, known := fieldIndex[name]; known && name != SystemTime && name != UserID {
			b.set(name, d.Value)
		}
	}
	ev.Fields = b.build()

	return ev, nil
}
