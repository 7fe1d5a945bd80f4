package usecase

import (
	"context"
	"strings"
	"testing"

	"minirag/internal/adapter/memstore"
)

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	chat := newChat(s, &stubAnswerer{reply: "A:"}, &scriptedGenerator{reply: "short"})
	d := NewDispatcher(chat, 20)

	tests := []struct {
		line string
		want string
	}{
		{"/start", startText},
		{"/help", helpText},
		{"/ask", askUsage},
		{"/ask    ", askUsage},
		{"/ask how to reset", "A: how to reset"},
		{"/ask@minirag_bot pizza", "A: pizza"},
		{"plain question", "A: plain question"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got, err := d.Dispatch(ctx, "u1", tc.line)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("Dispatch(%q) = %q, want %q", tc.line, got, tc.want)
			}
		})
	}
}

func TestDispatcher_SummarizeAndHistory(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	chat := newChat(s, &stubAnswerer{reply: "A:"}, &scriptedGenerator{reply: "short"})
	d := NewDispatcher(chat, 20)

	if got, _ := d.Dispatch(ctx, "u1", "/history"); got != "No recent history." {
		t.Errorf("unexpected empty history reply %q", got)
	}

	if _, err := d.Dispatch(ctx, "u1", "/ask hi"); err != nil {
		t.Fatal(err)
	}

	got, err := d.Dispatch(ctx, "u1", "/summarize")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Summary:\nshort" {
		t.Errorf("unexpected summary %q", got)
	}

	got, err = d.Dispatch(ctx, "u1", "/history")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "user: hi") || !strings.HasSuffix(lines[1], "bot: A: hi") {
		t.Errorf("unexpected history %q", got)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d := NewDispatcher(newChat(memstore.NewMemoryStore(), &stubAnswerer{}, &scriptedGenerator{}), 0)

	got, err := d.Dispatch(context.Background(), "u1", "/image")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "Unknown command /image.") || !strings.Contains(got, helpText) {
		t.Errorf("unexpected reply %q", got)
	}
}
