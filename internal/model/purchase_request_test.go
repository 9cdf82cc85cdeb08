package model

import "testing"

func TestFindTransitionLegalEdges(t *testing.T) {
	cases := []struct {
		from, action string
		wantTo       string
		wantActor    string
	}{
		{StatusPending, TransitionValidate, StatusValidated, ActorAccountant},
		{StatusPending, TransitionReturn, StatusPending, ActorAccountant},
		{StatusValidated, TransitionReturn, StatusPending, ActorAccountant},
		{StatusValidated, TransitionApprove, StatusApproved, ActorDirector},
		{StatusValidated, TransitionReject, StatusRejected, ActorDirector},
	}

	for _, c := range cases {
		tr, err := FindTransition(c.from, c.action)
		if err != nil {
			t.Fatalf("FindTransition(%s, %s): %v", c.from, c.action, err)
		}
		if tr.To != c.wantTo {
			t.Fatalf("FindTransition(%s, %s): To = %s, want %s", c.from, c.action, tr.To, c.wantTo)
		}
		if tr.ActorRole != c.wantActor {
			t.Fatalf("FindTransition(%s, %s): ActorRole = %s, want %s", c.from, c.action, tr.ActorRole, c.wantActor)
		}
	}
}

func TestFindTransitionRejectsIllegalEdges(t *testing.T) {
	illegal := []struct{ from, action string }{
		{StatusPending, TransitionApprove},
		{StatusPending, TransitionReject},
		{StatusValidated, TransitionValidate},
		{StatusApproved, TransitionValidate},
		{StatusApproved, TransitionReturn},
		{StatusApproved, TransitionApprove},
		{StatusApproved, TransitionReject},
		{StatusRejected, TransitionValidate},
		{StatusRejected, TransitionReturn},
		{StatusRejected, TransitionApprove},
		{StatusRejected, TransitionReject},
	}

	for _, c := range illegal {
		if _, err := FindTransition(c.from, c.action); err == nil {
			t.Fatalf("FindTransition(%s, %s): expected error, got nil", c.from, c.action)
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	for _, status := range []string{StatusPending, StatusValidated, StatusApproved, StatusRejected} {
		hasEdge := false
		for _, tr := range transitions {
			if tr.From == status {
				hasEdge = true
				break
			}
		}
		if IsTerminalStatus(status) && hasEdge {
			t.Fatalf("terminal status %s has an outgoing transition", status)
		}
		if !IsTerminalStatus(status) && !hasEdge {
			t.Fatalf("non-terminal status %s has no outgoing transition", status)
		}
	}
}

func TestReturnAlwaysRequiresNote(t *testing.T) {
	for _, tr := range transitions {
		if tr.Name == TransitionReturn && !tr.NoteRequired {
			t.Fatalf("return from %s does not require a note", tr.From)
		}
		if tr.Name != TransitionReturn && tr.NoteRequired {
			t.Fatalf("%s from %s unexpectedly requires a note", tr.Name, tr.From)
		}
	}
}

func TestReturnLandsOnPending(t *testing.T) {
	for _, tr := range transitions {
		if tr.Name == TransitionReturn && tr.To != StatusPending {
			t.Fatalf("return from %s lands on %s, want %s", tr.From, tr.To, StatusPending)
		}
	}
}
