package autobot

import (
	"sync"
	"time"
)

const defaultPageSize = 100

// ServiceOptions carries the optional collaborators of a Service.
type ServiceOptions struct {
	// Acknowledger is called after a message is archived. Nil disables it.
	Acknowledger Acknowledger
	Recorder     Recorder
	// Location decides which calendar week a message falls in. Defaults to UTC.
	Location *time.Location
	// PageSize is the number of messages requested per history page.
	PageSize int
}

// Service ingests images from chat messages into the week-bucketed archive
// and manages which channels are tracked.
type Service struct {
	ledger   Ledger
	platform Platform
	fetcher  Fetcher
	paths    *Paths
	namer    *Namer
	logger   Logger

	ack      Acknowledger
	recorder Recorder
	location *time.Location
	pageSize int

	inflight sync.Map
}

// NewService wires a Service. The ledger's lifecycle stays with the caller.
func NewService(ledger Ledger, platform Platform, fetcher Fetcher, paths *Paths, namer *Namer, logger Logger, opts ServiceOptions) *Service {
	s := &Service{
		ledger:   ledger,
		platform: platform,
		fetcher:  fetcher,
		paths:    paths,
		namer:    namer,
		logger:   logger,
		ack:      opts.Acknowledger,
		recorder: opts.Recorder,
		location: opts.Location,
		pageSize: opts.PageSize,
	}
	if s.recorder == nil {
		s.recorder = NopRecorder{}
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.pageSize <= 0 {
		s.pageSize = defaultPageSize
	}
	return s
}
