package feed

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxMessageLen is the hard publish limit, boundary inclusive.
const MaxMessageLen = 480

// DisplayTruncateLen is where rendered messages fold behind an expand toggle.
// Independent of the publish limit.
const DisplayTruncateLen = 250

var (
	// ErrEmptyMessage indicates a blank or whitespace-only message.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMessageTooLong indicates the message exceeds MaxMessageLen characters.
	ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", MaxMessageLen)
)

// ModerationError reports the banned tokens found in a message, deduplicated.
type ModerationError struct {
	Words []string
}

func (e *ModerationError) Error() string {
	return "message contains banned words: " + strings.Join(e.Words, ", ")
}

// bannedWords is the fixed moderation set. Matching is exact-token: a listed
// word only matches the whole normalized token, never a substring.
var bannedWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"mierda", "puta", "puto", "pendejo", "pendeja", "cabron",
		"imbecil", "idiota", "estupido", "estupida", "maldito",
		"maldita", "carajo", "joder", "coño", "verga", "culero",
		"mamon", "zorra", "perra", "marica", "maricon",
		"fuck", "shit", "bitch", "asshole", "bastard", "dick",
		"cunt", "whore", "slut",
	} {
		bannedWords[normalizeToken(w)] = struct{}{}
	}
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeToken(token string) string {
	stripped, _, err := transform.String(stripMarks, token)
	if err != nil {
		stripped = token
	}
	return strings.ToLower(stripped)
}

// Tokenize normalizes a message for moderation: diacritics stripped,
// lowercased, punctuation removed, split on whitespace.
func Tokenize(message string) []string {
	normalized := normalizeToken(message)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, normalized)
	return strings.Fields(cleaned)
}

// BannedMatches returns the deduplicated banned tokens present in message, in
// first-occurrence order.
func BannedMatches(message string) []string {
	var matches []string
	seen := map[string]struct{}{}
	for _, token := range Tokenize(message) {
		if _, banned := bannedWords[token]; !banned {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		matches = append(matches, token)
	}
	return matches
}

// ValidateMessage applies the client-side publish checks in order: non-blank,
// length, moderation. It never issues a request.
func ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageLen {
		return ErrMessageTooLong
	}
	if matches := BannedMatches(message); len(matches) > 0 {
		return &ModerationError{Words: matches}
	}
	return nil
}

// Truncate folds a message at DisplayTruncateLen characters, reporting
// whether it was shortened.
func Truncate(message string) (string, bool) {
	if utf8.RuneCountInString(message) <= DisplayTruncateLen {
		return message, false
	}
	runes := []rune(message)
	return string(runes[:DisplayTruncateLen]), true
}
