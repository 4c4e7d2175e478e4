package domain

import "testing"

func TestCompletionRequest_Key(t *testing.T) {
	base := NewCompletionRequest("modelX", []ChatMessage{UserMessage("hi")}, 100)

	tests := []struct {
		name  string
		other *CompletionRequest
		same  bool
	}{
		{
			name:  "structurally equal",
			other: NewCompletionRequest("modelX", []ChatMessage{UserMessage("hi")}, 100),
			same:  true,
		},
		{
			name:  "different model",
			other: NewCompletionRequest("modelY", []ChatMessage{UserMessage("hi")}, 100),
		},
		{
			name:  "different max tokens",
			other: NewCompletionRequest("modelX", []ChatMessage{UserMessage("hi")}, 101),
		},
		{
			name:  "different content",
			other: NewCompletionRequest("modelX", []ChatMessage{UserMessage("hi ")}, 100),
		},
		{
			name:  "different role",
			other: NewCompletionRequest("modelX", []ChatMessage{{Role: RoleSystem, Content: "hi"}}, 100),
		},
		{
			name:  "extra message",
			other: NewCompletionRequest("modelX", []ChatMessage{UserMessage("hi"), UserMessage("hi")}, 100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Key() == tt.other.Key(); got != tt.same {
				t.Errorf("Key() equal = %v, want %v", got, tt.same)
			}
			if got := base.Equal(tt.other); got != tt.same {
				t.Errorf("Equal() = %v, want %v", got, tt.same)
			}
		})
	}
}

func TestCompletionRequest_InvalidUTF8(t *testing.T) {
	a := NewCompletionRequest("modelX", []ChatMessage{UserMessage("a\xff")}, 100)
	b := NewCompletionRequest("modelX", []ChatMessage{UserMessage("a\xfe")}, 100)
	c := NewCompletionRequest("modelX", []ChatMessage{UserMessage("a\xff\xff")}, 100)

	if a.Key() != b.Key() || !a.Equal(b) {
		t.Errorf("a\\xff vs a\\xfe: Key equal %v, Equal %v; want both true", a.Key() == b.Key(), a.Equal(b))
	}
	if a.Key() == c.Key() || a.Equal(c) {
		t.Errorf("one vs two invalid bytes: Key equal %v, Equal %v; want both false", a.Key() == c.Key(), a.Equal(c))
	}
	if want := NewCompletionRequest("modelX", []ChatMessage{UserMessage("a\uFFFD")}, 100); !a.Equal(want) || a.Key() != want.Key() {
		t.Error("invalid byte should match an explicit U+FFFD")
	}
}

func TestNewCompletionRequest_CopiesMessages(t *testing.T) {
	msgs := []ChatMessage{UserMessage("original")}
	req := NewCompletionRequest("m", msgs, 50)
	key := req.Key()

	msgs[0].Content = "mutated"

	if req.Messages[0].Content != "original" {
		t.Errorf("Messages[0].Content = %q, want original", req.Messages[0].Content)
	}
	if req.Key() != key {
		t.Error("Key() changed after caller mutated its slice")
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAssistant, RoleSystem} {
		if !r.Valid() {
			t.Errorf("%q.Valid() = false", r)
		}
	}
	if Role("tool").Valid() {
		t.Error(`"tool".Valid() = true`)
	}
}

func TestPresent(t *testing.T) {
	tests := []struct {
		name string
		in   CompletionOutcome
		want PresentationOutcome
	}{
		{"success", Success("Paris"), Text("Paris")},
		{"empty", Empty(), Text(EmptyResultText)},
		{"failure", Failure("timeout"), Error("timeout")},
		{"unknown", CompletionOutcome{Kind: "weird"}, Error("unknown completion outcome: weird")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Present(tt.in); got != tt.want {
				t.Errorf("Present() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
