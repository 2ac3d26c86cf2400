package conversation

import "testing"

func TestTurn_Validate(t *testing.T) {
	if err := (Turn{SessionID: "s", Role: RoleUser}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Turn{Role: RoleUser}).Validate(); err == nil {
		t.Error("expected error for missing session")
	}
	if err := (Turn{SessionID: "s", Role: "system"}).Validate(); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestIsFirstExchange(t *testing.T) {
	if !IsFirstExchange(nil) {
		t.Error("empty history is a first exchange")
	}
	h := []Turn{{Role: RoleUser, Text: "hi"}}
	if !IsFirstExchange(h) {
		t.Error("user-only history is a first exchange")
	}
	h = append(h, Turn{Role: RoleAssistant, Text: "Hello!"})
	if IsFirstExchange(h) {
		t.Error("history with an assistant reply is not a first exchange")
	}
}

func TestLastAssistant(t *testing.T) {
	h := []Turn{
		{Role: RoleAssistant, Text: "old"},
		{Role: RoleUser, Text: "q"},
		{Role: RoleAssistant, Text: "new"},
		{Role: RoleUser, Text: "q2"},
	}
	got, ok := LastAssistant(h)
	if !ok || got.Text != "new" {
		t.Errorf("LastAssistant = %+v, %v", got, ok)
	}
	if _, ok := LastAssistant(h[1:2]); ok {
		t.Error("expected no assistant turn")
	}
}
