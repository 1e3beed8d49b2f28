package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/talgya/hexsettlers/internal/board"
	"github.com/talgya/hexsettlers/internal/protocol"
)

// Finding is one problem found while replaying a session.
type Finding struct {
	Seq       int
	Violation *board.Violation // nil for a snapshot that failed to decode
	Err       error
}

func (f Finding) String() string {
	if f.Violation != nil {
		return fmt.Sprintf("#%d %s", f.Seq, f.Violation)
	}
	return fmt.Sprintf("#%d %v", f.Seq, f.Err)
}

// Report summarises an audit.
type Report struct {
	Session   string
	Snapshots int
	Decoded   int
	Findings  []Finding
	Final     *board.State // last snapshot that decoded
}

// OK reports whether the audit found nothing.
func (r *Report) OK() bool { return len(r.Findings) == 0 }

// Audit decodes every snapshot of a session against topo and checks that
// confirmed progress never goes backwards between consecutive snapshots.
// Snapshots that fail to decode are reported and skipped, as the client
// would skip them.
func (j *Journal) Audit(ctx context.Context, session string, topo *board.Topology) (*Report, error) {
	entries, err := j.Snapshots(ctx, session)
	if err != nil {
		return nil, err
	}
	rep := &Report{Session: session, Snapshots: len(entries)}

	var prev *board.State
	for _, e := range entries {
		s, err := protocol.DecodeSnapshot(e.Body, topo)
		if err != nil {
			rep.Findings = append(rep.Findings, Finding{Seq: e.Seq, Err: err})
			continue
		}
		rep.Decoded++
		if prev != nil {
			for _, v := range board.CheckProgression(prev, s) {
				rep.Findings = append(rep.Findings, Finding{Seq: e.Seq, Violation: &v})
			}
		}
		prev = s
	}
	rep.Final = prev
	return rep, nil
}

// Resolve expands a unique session id prefix. An empty prefix selects the
// latest session.
func (j *Journal) Resolve(ctx context.Context, prefix string) (Session, error) {
	if prefix == "" {
		return j.Latest(ctx)
	}
	sessions, err := j.Sessions(ctx)
	if err != nil {
		return Session{}, err
	}
	var match []Session
	for _, s := range sessions {
		if strings.HasPrefix(s.ID, prefix) {
			match = append(match, s)
		}
	}
	switch len(match) {
	case 0:
		return Session{}, fmt.Errorf("no session matches %q", prefix)
	case 1:
		return match[0], nil
	}
	return Session{}, fmt.Errorf("%d sessions match %q", len(match), prefix)
}
