package moderation

import (
	"errors"
	"fmt"
)

type State string

const (
	StateIdle         State = "idle"
	StateMenuOpen     State = "menu_open"
	StateEditingText  State = "editing_text"
	StateEditingTitle State = "editing_title"
	StateEditingMedia State = "editing_media"
	StateConfirmed    State = "confirmed"
	StateRejected     State = "rejected"
)

var allStates = []State{
	StateIdle,
	StateMenuOpen,
	StateEditingText,
	StateEditingTitle,
	StateEditingMedia,
	StateConfirmed,
	StateRejected,
}

// Terminal reports whether no action leaves s.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateRejected
}

type Action string

const (
	ActionOpen              Action = "open"
	ActionEditText          Action = "edit_text"
	ActionEditTitle         Action = "edit_title"
	ActionEditMedia         Action = "edit_media"
	ActionSubmitText        Action = "submit_text"
	ActionSubmitTitle       Action = "submit_title"
	ActionMediaAddPrompt    Action = "media_add_prompt"
	ActionMediaRemovePrompt Action = "media_remove_prompt"
	ActionMediaAdd          Action = "media_add"
	ActionMediaRemove       Action = "media_remove"
	ActionBack              Action = "back"
	ActionRevert            Action = "revert"
	ActionDone              Action = "done"
	ActionConfirm           Action = "confirm"
	ActionReject            Action = "reject"
)

type Transition struct {
	From   State
	Action Action
	To     State
}

// DefaultTransitions is the reviewer workflow.
var DefaultTransitions = []Transition{
	{StateIdle, ActionOpen, StateMenuOpen},
	{StateMenuOpen, ActionOpen, StateMenuOpen},

	{StateMenuOpen, ActionEditText, StateEditingText},
	{StateMenuOpen, ActionEditTitle, StateEditingTitle},
	{StateMenuOpen, ActionEditMedia, StateEditingMedia},

	{StateEditingText, ActionSubmitText, StateMenuOpen},
	{StateEditingTitle, ActionSubmitTitle, StateMenuOpen},

	{StateEditingMedia, ActionMediaAddPrompt, StateEditingMedia},
	{StateEditingMedia, ActionMediaRemovePrompt, StateEditingMedia},
	{StateEditingMedia, ActionMediaAdd, StateEditingMedia},
	{StateEditingMedia, ActionMediaRemove, StateEditingMedia},

	{StateEditingText, ActionBack, StateMenuOpen},
	{StateEditingTitle, ActionBack, StateMenuOpen},
	{StateEditingMedia, ActionBack, StateMenuOpen},

	{StateMenuOpen, ActionRevert, StateMenuOpen},
	{StateMenuOpen, ActionDone, StateIdle},

	{StateIdle, ActionConfirm, StateConfirmed},
	{StateMenuOpen, ActionConfirm, StateConfirmed},
	{StateIdle, ActionReject, StateRejected},
	{StateMenuOpen, ActionReject, StateRejected},
}

type transitionKey struct {
	from   State
	action Action
}

// Table is a validated transition table.
type Table struct {
	next map[transitionKey]State
}

// NewTable rejects unknown states, duplicate (state, action) pairs, moves out of
// terminal states and states that cannot be reached from idle.
func NewTable(transitions []Transition) (*Table, error) {
	known := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		known[state] = struct{}{}
	}

	next := make(map[transitionKey]State, len(transitions))
	var errs []error
	for _, tr := range transitions {
		if _, ok := known[tr.From]; !ok {
			errs = append(errs, fmt.Errorf("unknown state %q", tr.From))
			continue
		}
		if _, ok := known[tr.To]; !ok {
			errs = append(errs, fmt.Errorf("unknown state %q", tr.To))
			continue
		}
		if tr.Action == "" {
			errs = append(errs, fmt.Errorf("empty action from %q", tr.From))
			continue
		}
		if tr.From.Terminal() {
			errs = append(errs, fmt.Errorf("transition %q out of terminal state %q", tr.Action, tr.From))
			continue
		}
		key := transitionKey{from: tr.From, action: tr.Action}
		if _, dup := next[key]; dup {
			errs = append(errs, fmt.Errorf("duplicate transition %q --%s-->", tr.From, tr.Action))
			continue
		}
		next[key] = tr.To
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	reachable := map[State]struct{}{StateIdle: {}}
	for changed := true; changed; {
		changed = false
		for key, to := range next {
			if _, ok := reachable[key.from]; !ok {
				continue
			}
			if _, ok := reachable[to]; !ok {
				reachable[to] = struct{}{}
				changed = true
			}
		}
	}
	for _, state := range allStates {
		if _, ok := reachable[state]; !ok {
			errs = append(errs, fmt.Errorf("state %q is unreachable", state))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Table{next: next}, nil
}

// Next returns the target state of action in from.
func (t *Table) Next(from State, action Action) (State, bool) {
	to, ok := t.next[transitionKey{from: from, action: action}]
	return to, ok
}
