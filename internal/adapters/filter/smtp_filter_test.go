package filter

import (
	"strings"
	"testing"

	"github.com/mikey/email-triage/internal/core"
)

func testSession() *smtpSession {
	return &smtpSession{filter: &SmtpFilter{
		decisionHeader: "X-Triage-Decision",
		scoreHeader:    "X-Triage-Score",
		reasonHeader:   "X-Triage-Reason",
	}}
}

func TestAnnotateStampsTriageHeaders(t *testing.T) {
	raw := "Subject: hello\r\n\r\noriginal body bytes"
	msg := parseMessage(t, raw)
	result := &core.TriageResult{
		Decision:      core.DecisionFlag,
		PriorityScore: 95,
		Reason:        "to_me (+24)\r\ninjected",
	}

	out := string(testSession().annotate([]byte(raw), msg, result))

	if !strings.Contains(out, "X-Triage-Decision: flag\r\n") {
		t.Errorf("decision header missing:\n%s", out)
	}
	if !strings.Contains(out, "X-Triage-Score: 95\r\n") {
		t.Errorf("score header missing:\n%s", out)
	}
	if !strings.Contains(out, "X-Triage-Reason: to_me (+24)  injected\r\n") {
		t.Errorf("reason not sanitized:\n%s", out)
	}
	if !strings.Contains(out, "Subject: hello\r\n") {
		t.Errorf("original header lost:\n%s", out)
	}
	if !strings.HasSuffix(out, "original body bytes") {
		t.Errorf("body bytes not copied verbatim:\n%s", out)
	}
}

func TestAnnotateErrorDecisionOnNilResult(t *testing.T) {
	raw := "Subject: hello\r\n\r\nbody"
	msg := parseMessage(t, raw)

	out := string(testSession().annotate([]byte(raw), msg, nil))

	if !strings.Contains(out, "X-Triage-Decision: error\r\n") {
		t.Errorf("error decision missing:\n%s", out)
	}
	if strings.Contains(out, "X-Triage-Score") {
		t.Errorf("score stamped without a result:\n%s", out)
	}
	if !strings.HasSuffix(out, "body") {
		t.Errorf("body lost on triage failure:\n%s", out)
	}
}

func TestAnnotateHandlesBareLFBodies(t *testing.T) {
	raw := "Subject: hello\n\nunix body"
	msg := parseMessage(t, raw)
	result := &core.TriageResult{Decision: core.DecisionIgnore, Reason: "r"}

	out := string(testSession().annotate([]byte(raw), msg, result))
	if !strings.HasSuffix(out, "unix body") {
		t.Errorf("LF-delimited body lost:\n%s", out)
	}
}
