package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"minirag/internal/adapter/memstore"
	"minirag/internal/domain"
	"minirag/internal/logging"
)

type stubAnswerer struct {
	reply string
	err   error
}

func (a *stubAnswerer) Answer(ctx context.Context, query string, k int) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return a.reply + " " + query, nil
}

func newChat(store *memstore.MemoryStore, ans Answerer, gen *scriptedGenerator) *ChatUseCase {
	uc := NewChatUseCase(store, ans, gen, 10, 100, logging.Discard())
	// A frozen clock makes the strictly-later bot timestamp observable.
	frozen := time.Unix(1700000000, 0)
	uc.now = func() time.Time { return frozen }
	return uc
}

func TestChatUseCase_AskRecordsBothTurns(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	uc := newChat(s, &stubAnswerer{reply: "answer to"}, &scriptedGenerator{})

	out, err := uc.Ask(ctx, "42", "reset password?")
	if err != nil {
		t.Fatal(err)
	}
	if out != "answer to reset password?" {
		t.Errorf("unexpected answer %q", out)
	}

	hist, err := s.RecentHistory(ctx, "42", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hist))
	}
	bot, user := hist[0], hist[1]
	if bot.Role != domain.RoleBot || user.Role != domain.RoleUser {
		t.Errorf("unexpected roles %s, %s", bot.Role, user.Role)
	}
	if !bot.Timestamp.After(user.Timestamp) {
		t.Errorf("bot turn %v not after user turn %v", bot.Timestamp, user.Timestamp)
	}
}

func TestChatUseCase_AskFailureKeepsQuestion(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	uc := newChat(s, &stubAnswerer{err: errProvider}, &scriptedGenerator{})

	if _, err := uc.Ask(ctx, "42", "q"); !errors.Is(err, errProvider) {
		t.Fatalf("expected answer error, got %v", err)
	}
	hist, _ := s.RecentHistory(ctx, "42", 10)
	if len(hist) != 1 || hist[0].Role != domain.RoleUser {
		t.Errorf("expected only the question recorded, got %+v", hist)
	}
}

func TestChatUseCase_Summarize(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	gen := &scriptedGenerator{reply: "You asked about passwords."}
	uc := newChat(s, &stubAnswerer{}, gen)

	out, err := uc.Summarize(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if out != "No recent history." {
		t.Errorf("expected no-history reply, got %q", out)
	}
	if len(gen.prompts) != 0 {
		t.Error("generator should not be called without history")
	}

	base := time.Unix(1700000000, 0)
	for i := 0; i < 12; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleBot
		}
		s.AppendHistory(ctx, domain.HistoryEntry{
			UserID:    "42",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Role:      role,
			Text:      string(rune('a' + i)),
		})
	}

	out, err = uc.Summarize(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Summary:\nYou asked about passwords." {
		t.Errorf("unexpected summary %q", out)
	}

	// The ten newest entries, c through l, oldest first.
	want := "Summarize briefly:\n\nuser: c\nbot: d\nuser: e\nbot: f\nuser: g\nbot: h\nuser: i\nbot: j\nuser: k\nbot: l"
	if gen.prompts[0] != want {
		t.Errorf("unexpected prompt:\n%q\nwant:\n%q", gen.prompts[0], want)
	}
	if gen.lengths[0] != 100 {
		t.Errorf("expected summary max length 100, got %d", gen.lengths[0])
	}
}

func TestChatUseCase_History(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	uc := newChat(s, &stubAnswerer{reply: "r"}, &scriptedGenerator{})

	uc.Ask(ctx, "7", "first")

	entries, err := uc.History(ctx, "7", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Text != "first" || entries[1].Text != "r first" {
		t.Errorf("expected chronological entries, got %+v", entries)
	}
}
