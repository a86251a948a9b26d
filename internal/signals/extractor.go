// Package signals derives named scoring contributions from canonical
// emails. The rule set is fixed; what each rule matches comes from the
// lexicon tables in configuration, so behavior is extended through data,
// not code branches.
package signals

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/mikey/email-triage/internal/config"
	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/vip"
)

var noreplyPattern = regexp.MustCompile(`(?i)noreply|no-reply|donotreply|do-not-reply`)

// lexicon is one compiled pattern group
type lexicon []*regexp.Regexp

func (l lexicon) matches(text string) bool {
	for _, p := range l {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func compileLexicon(group string, entries []string) (lexicon, error) {
	out := make(lexicon, 0, len(entries))
	for _, entry := range entries {
		p, err := regexp.Compile("(?i)" + entry)
		if err != nil {
			return nil, &core.ConfigError{Reason: fmt.Sprintf("lexicons.%s entry %q: %v", group, entry, err)}
		}
		out = append(out, p)
	}
	return out, nil
}

// Extractor computes signal contributions in fixed declaration order. Safe
// for concurrent use once constructed; nothing is mutated during extraction.
type Extractor struct {
	weights       map[core.Signal]int
	priorCap      int
	priorMinSeen  int
	priorNegative bool
	scanChars     int
	vips          *vip.Checker

	actionStrong  lexicon
	actionWeak    lexicon
	questionLeads lexicon
	meeting       lexicon
	deadline      lexicon
	urgency       lexicon
	fyi           lexicon
	newsletter    lexicon
	noAction      lexicon
}

// NewExtractor compiles the lexicon tables and captures the immutable
// weight configuration.
func NewExtractor(weights config.WeightsConfig, lexicons config.LexiconsConfig, triage config.TriageConfig, vips *vip.Checker) (*Extractor, error) {
	e := &Extractor{
		weights:       weights.Signals,
		priorCap:      weights.SenderPriorCap,
		priorMinSeen:  weights.SenderPriorMinSeen,
		priorNegative: triage.SenderPriorNegative,
		scanChars:     lexicons.ScanChars,
		vips:          vips,
	}
	if e.scanChars <= 0 {
		e.scanChars = 1200
	}

	var err error
	for _, c := range []struct {
		name    string
		entries []string
		dst     *lexicon
	}{
		{"action_strong", lexicons.ActionStrong, &e.actionStrong},
		{"action_weak", lexicons.ActionWeak, &e.actionWeak},
		{"question_leads", lexicons.QuestionLeads, &e.questionLeads},
		{"meeting", lexicons.Meeting, &e.meeting},
		{"deadline", lexicons.Deadline, &e.deadline},
		{"urgency", lexicons.Urgency, &e.urgency},
		{"fyi", lexicons.FYI, &e.fyi},
		{"newsletter", lexicons.Newsletter, &e.newsletter},
		{"no_action", lexicons.NoAction, &e.noAction},
	} {
		if *c.dst, err = compileLexicon(c.name, c.entries); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Extract derives the contributions for one email. A rule that does not
// match, or whose configured weight is zero, emits nothing. profile may be
// nil for a first-seen sender.
func (e *Extractor) Extract(email *core.Email, profile *core.SenderProfile) []core.SignalContribution {
	text := e.scanText(email)
	sender := strings.ToLower(strings.TrimSpace(email.From.Address))

	var out []core.SignalContribution
	add := func(sig core.Signal, points int, matched bool) {
		if !matched || points == 0 {
			return
		}
		out = append(out, core.SignalContribution{Signal: sig, Points: points})
	}

	// Recipient position: mutually exclusive, disabled in degraded mode.
	if !email.Degraded {
		add(core.SignalToMe, e.weights[core.SignalToMe], email.IsToMe)
		add(core.SignalCcMe, e.weights[core.SignalCcMe], !email.IsToMe && email.IsCcMe)
	}

	add(core.SignalVIPSender, e.weights[core.SignalVIPSender], e.vips.Contains(sender))

	// Action phrases: strong takes precedence, at most one fires.
	if e.actionStrong.matches(text) {
		add(core.SignalActionStrong, e.weights[core.SignalActionStrong], true)
	} else if e.actionWeak.matches(text) {
		add(core.SignalActionWeak, e.weights[core.SignalActionWeak], true)
	}

	add(core.SignalQuestion, e.weights[core.SignalQuestion], e.questionDetected(text))
	add(core.SignalMeetingInvite, e.weights[core.SignalMeetingInvite],
		email.MeetingInvite || e.meeting.matches(text))
	add(core.SignalDeadline, e.weights[core.SignalDeadline], e.deadline.matches(text))
	add(core.SignalUrgency, e.weights[core.SignalUrgency], e.urgency.matches(text))
	add(core.SignalImportanceHigh, e.weights[core.SignalImportanceHigh], email.Importance == "high")
	add(core.SignalHasAttachments, e.weights[core.SignalHasAttachments], email.HasAttachments)
	add(core.SignalNoreplySender, e.weights[core.SignalNoreplySender],
		sender != "" && noreplyPattern.MatchString(sender))
	add(core.SignalFYIPhrase, e.weights[core.SignalFYIPhrase], e.fyi.matches(text))
	add(core.SignalNewsletter, e.weights[core.SignalNewsletter], e.newsletter.matches(text))
	add(core.SignalNoAction, e.weights[core.SignalNoAction], e.noAction.matches(text))
	add(core.SignalUnread, e.weights[core.SignalUnread], !email.IsRead)

	prior := e.senderPrior(profile)
	add(core.SignalSenderPrior, prior, prior != 0)

	return out
}

// scanText is the matching surface: subject plus the first portion of the
// body, preview as fallback when the body is empty.
func (e *Extractor) scanText(email *core.Email) string {
	body := email.BodyText
	if strings.TrimSpace(body) == "" {
		body = email.BodyPreview
	}
	if len(body) > e.scanChars {
		body = body[:e.scanChars]
	}
	return email.Subject + "\n" + body
}

// questionDetected requires both a question mark and an interrogative lead
// word, keeping it distinct from action-phrase detection.
func (e *Extractor) questionDetected(text string) bool {
	return strings.Contains(text, "?") && e.questionLeads.matches(text)
}

// senderPrior converts a sender's historical flag/surface rate into a
// bounded contribution. The cap holds no matter how large the counts grow;
// the negative half is a configuration choice.
func (e *Extractor) senderPrior(profile *core.SenderProfile) int {
	if profile == nil || e.priorCap <= 0 || profile.Seen < e.priorMinSeen {
		return 0
	}
	rate := float64(profile.Flagged+profile.Surfaced) / float64(profile.Seen)
	raw := int(math.Round((rate - 0.5) * 2 * float64(e.priorCap)))
	if raw > e.priorCap {
		raw = e.priorCap
	}
	if raw < -e.priorCap {
		raw = -e.priorCap
	}
	if raw < 0 && !e.priorNegative {
		raw = 0
	}
	return raw
}
