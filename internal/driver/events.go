package driver

import "time"

// Stage is a step of checking one file.
type Stage string

const (
	StageLoad     Stage = "load"
	StageParse    Stage = "parse"
	StageLower    Stage = "lower_mir"
	StageBorrowck Stage = "borrowck"
)

// Status captures progress within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusCached  Status = "cached"
	StatusError   Status = "error"
)

// Event reports progress for a file, or for the whole run when File is
// empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. CheckDir calls OnEvent from
// several goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
