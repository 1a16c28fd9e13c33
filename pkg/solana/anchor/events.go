package anchor

import (
	"encoding/base64"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

const (
	// LogDataPrefix marks a log line carrying base64 encoded event data.
	LogDataPrefix = "Program data: "

	// CPIEventTagSize is the length of the opaque tag that precedes the
	// event discriminator in self-invoked event instructions.
	CPIEventTagSize = 8
)

// Event is a decoded event.
type Event struct {
	Name  string
	Value interface{}
}

// FromLogs decodes every log line carrying this event, in order. Lines that
// are not event data, fail to decode or belong to another event are skipped.
func (c *Codec) FromLogs(lines []string) []interface{} {
	var values []interface{}
	for _, line := range lines {
		data, ok := logData(line)
		if !ok {
			continue
		}

		v, err := c.Decode(data)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}

// FromCPILogs decodes every base58 encoded self-invoked instruction payload
// carrying this event, in order. Failing entries are skipped.
func (c *Codec) FromCPILogs(entries []string) []interface{} {
	var values []interface{}
	for _, entry := range entries {
		data, ok := cpiData(entry, len(c.disc))
		if !ok {
			continue
		}

		v, err := c.Decode(data)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}

// EventsFromLogs decodes the events of every known type found in the log
// lines, in log order.
func (p *Program) EventsFromLogs(lines []string) []Event {
	var events []Event
	for i, line := range lines {
		data, ok := logData(line)
		if !ok {
			continue
		}

		event, err := p.ParseEvent(data)
		if err != nil {
			p.log.WithError(err).WithField("line", i).Trace("skipping undecodable event data")
			continue
		}
		events = append(events, *event)
	}
	return events
}

// EventsFromCPILogs decodes the events of every known type carried by
// base58 encoded self-invoked instruction payloads, in order.
func (p *Program) EventsFromCPILogs(entries []string) []Event {
	payloads := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		raw, err := base58.Decode(entry)
		if err != nil {
			continue
		}
		payloads = append(payloads, raw)
	}
	return p.eventsFromCPIPayloads(payloads)
}

func (p *Program) eventsFromCPIPayloads(payloads [][]byte) []Event {
	var events []Event
	for i, raw := range payloads {
		data, ok := stripCPITag(raw, 0)
		if !ok {
			continue
		}

		event, err := p.ParseEvent(data)
		if err != nil {
			p.log.WithFields(logrus.Fields{
				"entry": i,
			}).WithError(err).Trace("skipping undecodable cpi event")
			continue
		}
		events = append(events, *event)
	}
	return events
}

func logData(line string) ([]byte, bool) {
	if !strings.HasPrefix(line, LogDataPrefix) {
		return nil, false
	}

	data, err := base64.StdEncoding.DecodeString(line[len(LogDataPrefix):])
	if err != nil {
		return nil, false
	}
	return data, true
}

// cpiData decodes a base58 entry and strips its tag.
func cpiData(entry string, discLen int) ([]byte, bool) {
	raw, err := base58.Decode(entry)
	if err != nil {
		return nil, false
	}
	return stripCPITag(raw, discLen)
}

// stripCPITag drops the opaque tag, which is not validated. Payloads too
// short to hold the tag and a discriminator of discLen bytes are rejected.
func stripCPITag(raw []byte, discLen int) ([]byte, bool) {
	if len(raw) < CPIEventTagSize+discLen {
		return nil, false
	}
	return raw[CPIEventTagSize:], true
}
