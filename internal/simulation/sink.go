package simulation

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"sync"
)

// Sink receives the append-only record stream of a run.
type Sink interface {
	Write(r Record) error
}

// SliceSink keeps every record in memory.
type SliceSink struct {
	mu      sync.Mutex
	records []Record
}

func (s *SliceSink) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *SliceSink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// ChannelSink streams records to a consumer. Write blocks until the record
// is taken or ctx is done.
type ChannelSink struct {
	ctx context.Context
	ch  chan Record
}

func NewChannelSink(ctx context.Context, buffer int) *ChannelSink {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelSink{ctx: ctx, ch: make(chan Record, buffer)}
}

func (s *ChannelSink) Write(r Record) error {
	select {
	case s.ch <- r:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// C is the receive side. It is closed by Close.
func (s *ChannelSink) C() <-chan Record { return s.ch }

func (s *ChannelSink) Close() { close(s.ch) }

var csvHeader = []string{
	"period",
	"agent_id",
	"resource",
	"bought_local",
	"sold_local",
	"bought_grid",
	"sold_grid",
	"cost",
	"balance",
	"soc",
	"action",
}

// CSVSink writes records as CSV rows. The header is written with the first
// record; Flush must be called when the run is done.
type CSVSink struct {
	w           *csv.Writer
	wroteHeader bool
}

func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

func (s *CSVSink) Write(r Record) error {
	if !s.wroteHeader {
		if err := s.w.Write(csvHeader); err != nil {
			return err
		}
		s.wroteHeader = true
	}
	soc := ""
	if r.SOC != nil {
		soc = fmtFloat(*r.SOC)
	}
	return s.w.Write([]string{
		strconv.Itoa(r.Period),
		r.AgentID,
		string(r.Resource),
		fmtFloat(r.BoughtLocal),
		fmtFloat(r.SoldLocal),
		fmtFloat(r.BoughtGrid),
		fmtFloat(r.SoldGrid),
		r.Cost.StringFixed(6),
		r.Balance.StringFixed(6),
		soc,
		string(r.Action),
	})
}

func (s *CSVSink) Flush() error {
	if !s.wroteHeader {
		if err := s.w.Write(csvHeader); err != nil {
			return err
		}
		s.wroteHeader = true
	}
	s.w.Flush()
	return s.w.Error()
}

// multiSink fans a record out to several sinks in order.
type multiSink []Sink

func (m multiSink) Write(r Record) error {
	for _, s := range m {
		if err := s.Write(r); err != nil {
			return err
		}
	}
	return nil
}
