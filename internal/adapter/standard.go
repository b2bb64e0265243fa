package adapter

import (
	"fmt"

	"github.com/roach88/herald/internal/ir"
)

// Reviewable is implemented by objects that accept reviewers.
type Reviewable interface {
	AddReviewers(reviewers []ir.PHID, blocking bool) int
}

// Subscribable is implemented by objects with a CC list.
type Subscribable interface {
	AddCCs(ccs []ir.PHID) int
	RemoveCCs(ccs []ir.PHID) int
}

// Flag is a private marker a personal rule placed on an object.
type Flag struct {
	RulePHID ir.PHID `json:"rule_phid"`
	Color    string  `json:"color"`
}

// Comment is text a rule asked to post on an object.
type Comment struct {
	RulePHID ir.PHID `json:"rule_phid"`
	Text     string  `json:"text"`
}

// DefaultFlagColor is used when a flag effect carries no color.
const DefaultFlagColor = "violet"

// Standard is the default StandardApplier.
//
// Reviewer and CC actions mutate the object in memory. Email, flag and
// comment actions are accumulated for the caller to deliver; Standard
// never performs delivery itself. A Standard is scoped to one cycle.
type Standard struct {
	emails   []ir.PHID
	flags    []Flag
	comments []Comment
}

// NewStandard returns an empty Standard applier.
func NewStandard() *Standard {
	return &Standard{}
}

// Emails returns the accumulated mail recipients, deduplicated, in order.
func (s *Standard) Emails() []ir.PHID {
	return s.emails
}

// Flags returns the accumulated flags in application order.
func (s *Standard) Flags() []Flag {
	return s.flags
}

// Comments returns the accumulated comments in application order.
func (s *Standard) Comments() []Comment {
	return s.comments
}

// ApplyStandardEffect implements StandardApplier.
func (s *Standard) ApplyStandardEffect(object Object, effect ir.Effect) ir.Transcript {
	switch effect.Action {
	case ir.ActionNothing:
		return ir.NewTranscript(effect, true, "Did nothing.")

	case ir.ActionAddCC, ir.ActionRemoveCC:
		return s.applyCC(object, effect)

	case ir.ActionEmail:
		phids, err := ir.AsPHIDs(effect.Target)
		if err != nil {
			return malformed(effect, err)
		}
		s.addEmails(phids)
		return ir.NewTranscript(effect, true, "Added mailable to mail list.")

	case ir.ActionFlag:
		return s.applyFlag(effect)

	case ir.ActionAddReviewers, ir.ActionAddBlockingReviewers:
		return s.applyReviewers(object, effect)

	case ir.ActionComment:
		text, ok := effect.Target.(ir.String)
		if !ok || text == "" {
			return ir.NewTranscript(effect, false, "Comment target must be non-empty text.")
		}
		s.comments = append(s.comments, Comment{RulePHID: effect.RulePHID, Text: string(text)})
		return ir.NewTranscript(effect, true, "Added comment.")

	default:
		return ir.NewTranscript(effect, false, fmt.Sprintf("No rules to handle action %q.", effect.Action))
	}
}

func (s *Standard) applyCC(object Object, effect ir.Effect) ir.Transcript {
	sub, ok := object.(Subscribable)
	if !ok {
		return unsupported(effect)
	}
	phids, err := ir.AsPHIDs(effect.Target)
	if err != nil {
		return malformed(effect, err)
	}

	if effect.Action == ir.ActionRemoveCC {
		sub.RemoveCCs(phids)
		return ir.NewTranscript(effect, true, "Removed addresses from CC list.")
	}
	sub.AddCCs(phids)
	return ir.NewTranscript(effect, true, "Added addresses to CC list.")
}

func (s *Standard) applyReviewers(object Object, effect ir.Effect) ir.Transcript {
	rev, ok := object.(Reviewable)
	if !ok {
		return unsupported(effect)
	}
	phids, err := ir.AsPHIDs(effect.Target)
	if err != nil {
		return malformed(effect, err)
	}

	if effect.Action == ir.ActionAddBlockingReviewers {
		rev.AddReviewers(phids, true)
		return ir.NewTranscript(effect, true, "Added blocking reviewers.")
	}
	rev.AddReviewers(phids, false)
	return ir.NewTranscript(effect, true, "Added reviewers.")
}

func (s *Standard) applyFlag(effect ir.Effect) ir.Transcript {
	color := DefaultFlagColor
	switch t := effect.Target.(type) {
	case nil, ir.Null:
	case ir.String:
		if t != "" {
			color = string(t)
		}
	default:
		return ir.NewTranscript(effect, false, fmt.Sprintf("Flag target must be a color, got %T.", t))
	}

	// One flag per rule; a second flag effect from the same rule is a no-op.
	for _, f := range s.flags {
		if f.RulePHID == effect.RulePHID {
			return ir.NewTranscript(effect, true, "Object already flagged.")
		}
	}
	s.flags = append(s.flags, Flag{RulePHID: effect.RulePHID, Color: color})
	return ir.NewTranscript(effect, true, "Added flag.")
}

func (s *Standard) addEmails(phids []ir.PHID) {
	seen := make(map[ir.PHID]bool, len(s.emails))
	for _, e := range s.emails {
		seen[e] = true
	}
	for _, phid := range phids {
		if !seen[phid] {
			seen[phid] = true
			s.emails = append(s.emails, phid)
		}
	}
}

func unsupported(effect ir.Effect) ir.Transcript {
	return ir.NewTranscript(effect, false, fmt.Sprintf("Object does not support action %q.", effect.Action))
}

func malformed(effect ir.Effect, err error) ir.Transcript {
	return ir.NewTranscript(effect, false, fmt.Sprintf("Invalid target for %q: %v.", effect.Action, err))
}
