package feed

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateMessageAcceptsCleanText(t *testing.T) {
	for _, msg := range []string{
		"hola vecinos",
		"se vende bicicleta en la casa A-12",
		"mierdas", // plural is not in the banned set, token match is exact
		strings.Repeat("a", MaxMessageLen),
	} {
		if err := ValidateMessage(msg); err != nil {
			t.Fatalf("expected %q to be accepted, got %v", msg, err)
		}
	}
}

func TestValidateMessageRejectsBlank(t *testing.T) {
	for _, msg := range []string{"", "   ", "\n\t "} {
		if err := ValidateMessage(msg); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("expected empty-message error for %q, got %v", msg, err)
		}
	}
}

func TestValidateMessageLengthBoundary(t *testing.T) {
	if err := ValidateMessage(strings.Repeat("x", MaxMessageLen)); err != nil {
		t.Fatalf("expected %d chars to pass, got %v", MaxMessageLen, err)
	}
	if err := ValidateMessage(strings.Repeat("x", MaxMessageLen+1)); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("expected %d chars to be rejected, got %v", MaxMessageLen+1, err)
	}
}

func TestValidateMessageBannedTokens(t *testing.T) {
	err := ValidateMessage("qué MIÉRDA de día, pura mierda.")
	var modErr *ModerationError
	if !errors.As(err, &modErr) {
		t.Fatalf("expected moderation error, got %v", err)
	}
	if len(modErr.Words) != 1 || modErr.Words[0] != "mierda" {
		t.Fatalf("expected deduplicated match [mierda], got %v", modErr.Words)
	}
}

func TestValidateMessageReportsEachMatchOnce(t *testing.T) {
	err := ValidateMessage("puta mierda puta shit")
	var modErr *ModerationError
	if !errors.As(err, &modErr) {
		t.Fatalf("expected moderation error, got %v", err)
	}
	want := []string{"puta", "mierda", "shit"}
	if len(modErr.Words) != len(want) {
		t.Fatalf("expected %v, got %v", want, modErr.Words)
	}
	for i, w := range want {
		if modErr.Words[i] != w {
			t.Fatalf("expected %v, got %v", want, modErr.Words)
		}
	}
}

func TestTokenizeStripsDiacriticsAndPunctuation(t *testing.T) {
	tokens := Tokenize("¡Qué día! Vamos, acción-rápida…")
	want := []string{"que", "dia", "vamos", "accion", "rapida"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %v, got %v", want, tokens)
	}
	for i, w := range want {
		if tokens[i] != w {
			t.Fatalf("expected %v, got %v", want, tokens)
		}
	}
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("a", DisplayTruncateLen)
	if got, truncated := Truncate(short); truncated || got != short {
		t.Fatalf("expected %d chars untouched", DisplayTruncateLen)
	}

	long := strings.Repeat("b", DisplayTruncateLen+40)
	got, truncated := Truncate(long)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if len([]rune(got)) != DisplayTruncateLen {
		t.Fatalf("expected %d runes, got %d", DisplayTruncateLen, len([]rune(got)))
	}
}
