package client

import (
	"github.com/quill-ai/quill/internal/event"
)

// BadgeState is a tool badge's lifecycle state.
type BadgeState int

const (
	BadgeActive BadgeState = iota
	BadgeComplete
)

// Badge is the render-facing indicator for one tool invocation.
type Badge struct {
	Tool  string
	State BadgeState
}

// Entry is the transcript entry a single turn reduces into. It is owned by
// the render layer; the reducer mutates it, the renderer reads it.
type Entry struct {
	// Text is the display text: the cumulative assistant output, or the
	// error message once the turn has failed.
	Text string
	// Badges in creation order, rendered before the loading indicator.
	Badges []Badge
	// Loading is true from creation until the first content or terminal
	// envelope.
	Loading bool
	// Failed marks a turn that terminated with an error envelope.
	Failed bool
}

// Badge returns the badge for a tool, or nil.
func (e *Entry) Badge(tool string) *Badge {
	for i := range e.Badges {
		if e.Badges[i].Tool == tool {
			return &e.Badges[i]
		}
	}
	return nil
}

// Reducer folds one turn's envelope sequence into an Entry. It is a plain
// single-threaded fold: envelopes are applied in receipt order and anything
// arriving after the terminal envelope is ignored.
type Reducer struct {
	entry          Entry
	conversationID string
	done           bool
}

// NewReducer starts a fresh turn in the loading state.
func NewReducer() *Reducer {
	return &Reducer{entry: Entry{Loading: true}}
}

// Apply folds one envelope into the entry. It reports whether the envelope
// changed state; post-terminal envelopes (including a replayed done) are
// ignored and report false.
func (r *Reducer) Apply(env event.Envelope) bool {
	if r.done {
		return false
	}

	switch env.Kind {
	case event.KindContent:
		r.entry.Text += env.Content
		r.entry.Loading = false

	case event.KindToolStart:
		// Duplicate starts are a no-op; the badge already signals activity.
		if r.entry.Badge(env.Tool) == nil {
			r.entry.Badges = append(r.entry.Badges, Badge{Tool: env.Tool, State: BadgeActive})
		}

	case event.KindToolEnd:
		if b := r.entry.Badge(env.Tool); b != nil {
			b.State = BadgeComplete
		} else {
			// End without start: keep the signal, a completed call with no
			// visible running phase.
			r.entry.Badges = append(r.entry.Badges, Badge{Tool: env.Tool, State: BadgeComplete})
		}

	case event.KindDone:
		r.conversationID = env.ConversationID
		r.finalize()

	case event.KindError:
		// Badges stay as-is so partial progress remains visible.
		r.entry.Text = env.Error
		r.entry.Failed = true
		r.finalize()

	default:
		return false
	}
	return true
}

// Abandon finalizes the entry when the stream drops before a terminal
// envelope: loading clears, accumulated text stays.
func (r *Reducer) Abandon() {
	r.finalize()
}

func (r *Reducer) finalize() {
	r.done = true
	r.entry.Loading = false
}

// Entry returns the current reduction state.
func (r *Reducer) Entry() Entry {
	out := r.entry
	out.Badges = append([]Badge(nil), r.entry.Badges...)
	return out
}

// ConversationID returns the id confirmed by the done envelope, or "" if the
// turn has not completed successfully.
func (r *Reducer) ConversationID() string {
	return r.conversationID
}

// Done reports whether the turn has been finalized.
func (r *Reducer) Done() bool {
	return r.done
}
