package core

import (
	"time"
)

// Address is a parsed mailbox participant
type Address struct {
	Name    string
	Address string
}

// RawRecord is an email record as delivered by a mail source, before
// normalization. Body may be HTML or plain text depending on BodyType.
type RawRecord struct {
	MessageID        string
	Subject          string
	From             Address
	To               []string
	Cc               []string
	ReceivedAt       time.Time
	IsRead           bool
	BodyType         string // "html" or "text"
	Body             string
	BodyPreview      string
	Importance       string // "low", "normal", "high"
	HasAttachments   bool
	IsMeetingRequest bool
}

// Email is the canonical, normalized form of a message. MessageID and
// Subject are carried through from the raw record unmodified; BodyText may
// be shortened but never fabricated.
type Email struct {
	MessageID      string
	Subject        string
	From           Address
	To             []string
	Cc             []string
	ReceivedAt     time.Time
	IsRead         bool
	BodyText       string
	BodyPreview    string
	Importance     string
	HasAttachments bool
	MeetingInvite  bool
	IsToMe         bool
	IsCcMe         bool
	// Degraded is set when the mailbox owner address was unknown at
	// normalization time; recipient-position signals must not fire.
	Degraded bool
}

// Signal names the fixed set of scoring contributions. Extraction order is
// the declaration order below, independent of which signals fire.
type Signal string

const (
	SignalToMe           Signal = "to_me"
	SignalCcMe           Signal = "cc_me"
	SignalVIPSender      Signal = "vip_sender"
	SignalActionStrong   Signal = "action_phrase_strong"
	SignalActionWeak     Signal = "action_phrase_weak"
	SignalQuestion       Signal = "question_detected"
	SignalMeetingInvite  Signal = "meeting_invite"
	SignalDeadline       Signal = "deadline"
	SignalUrgency        Signal = "urgency"
	SignalImportanceHigh Signal = "importance_high"
	SignalHasAttachments Signal = "has_attachments"
	SignalNoreplySender  Signal = "noreply_sender"
	SignalFYIPhrase      Signal = "fyi_phrase"
	SignalNewsletter     Signal = "newsletter_phrase"
	SignalNoAction       Signal = "no_action_phrase"
	SignalUnread         Signal = "unread"
	SignalSenderPrior    Signal = "sender_prior"
)

// SignalOrder is the fixed declaration order used for extraction and for
// breaking ties when ranking reasons.
var SignalOrder = []Signal{
	SignalToMe,
	SignalCcMe,
	SignalVIPSender,
	SignalActionStrong,
	SignalActionWeak,
	SignalQuestion,
	SignalMeetingInvite,
	SignalDeadline,
	SignalUrgency,
	SignalImportanceHigh,
	SignalHasAttachments,
	SignalNoreplySender,
	SignalFYIPhrase,
	SignalNewsletter,
	SignalNoAction,
	SignalUnread,
	SignalSenderPrior,
}

// SignalContribution is one named, signed contribution to the priority score
type SignalContribution struct {
	Signal Signal `json:"signal"`
	Points int    `json:"points"`
}

// Decision is the triage tier for a message
type Decision string

const (
	DecisionFlag    Decision = "flag"
	DecisionSurface Decision = "surface"
	DecisionIgnore  Decision = "ignore"
)

// Tier returns the ordinal rank of a decision (ignore < surface < flag)
func (d Decision) Tier() int {
	switch d {
	case DecisionFlag:
		return 2
	case DecisionSurface:
		return 1
	default:
		return 0
	}
}

// Category is an AI classifier label for a message
type Category string

const (
	CategoryActionRequest  Category = "action_request"
	CategoryDirectQuestion Category = "direct_question"
	CategoryMeetingRequest Category = "meeting_request"
	CategoryWaiting        Category = "waiting_on_others"
	CategoryFYI            Category = "fyi"
	CategorySpamOrNoise    Category = "spam_or_noise"
	CategoryUnknown        Category = "unknown"
)

// ActionRequired reports whether the category indicates a message the
// recipient needs to act on.
func (c Category) ActionRequired() bool {
	switch c {
	case CategoryActionRequest, CategoryDirectQuestion, CategoryMeetingRequest:
		return true
	}
	return false
}

// Verdict is the result of one AI classification call
type Verdict struct {
	Category        Category `json:"classification"`
	Confidence      float64  `json:"confidence"`
	Rationale       string   `json:"reason"`
	Summary         string   `json:"summary"`
	RequestedAction string   `json:"requested_action,omitempty"`
	DeadlineISO     string   `json:"deadline_iso,omitempty"`
	AsksMe          bool     `json:"asks_me_specifically"`
	ModelUsed       string   `json:"model_used,omitempty"`
}

// ResolutionKind tags how a triage result was produced
type ResolutionKind int

const (
	// HeuristicOnly means the AI was not consulted or not usable
	HeuristicOnly ResolutionKind = iota
	// AIBacked means an AI verdict was available and merged
	AIBacked
)

// Resolution carries the classifier outcome for one email into the merge
// step. AIBacked carries a Verdict; HeuristicOnly may carry the fallback
// reason when an AI call was attempted but unusable.
type Resolution struct {
	Kind     ResolutionKind
	Verdict  *Verdict
	Fallback string // "" when the AI was never requested
}

// TriageResult is the final outcome for one email
type TriageResult struct {
	Email         *Email               `json:"email"`
	Decision      Decision             `json:"decision"`
	PriorityScore int                  `json:"priority_score"`
	Reason        string               `json:"reason"`
	Breakdown     []SignalContribution `json:"score_breakdown"`
	AI            *Verdict             `json:"ai,omitempty"`
	Fallback      string               `json:"fallback,omitempty"`
}

// SenderProfile is the learned prior for one sender address. Counts are
// non-negative and never decrease within a store's lifetime.
type SenderProfile struct {
	Address     string    `json:"address"`
	Seen        int       `json:"seen"`
	Flagged     int       `json:"flagged"`
	Surfaced    int       `json:"surfaced"`
	Ignored     int       `json:"ignored"`
	LastUpdated time.Time `json:"last_updated"`
}

// Record increments the profile counters for one finalized decision
func (p *SenderProfile) Record(d Decision, now time.Time) {
	p.Seen++
	switch d {
	case DecisionFlag:
		p.Flagged++
	case DecisionSurface:
		p.Surfaced++
	default:
		p.Ignored++
	}
	p.LastUpdated = now
}
