package session

import (
	"fmt"
	"strings"

	"github.com/soyeahso/vchat/internal/domain"
)

// userLabel prefixes user turns in a transcript.
const userLabel = "User"

// AppendMessage returns a new history with msg at the end. The input slice
// is not modified.
func AppendMessage(history []domain.Message, msg domain.Message) ([]domain.Message, error) {
	for _, m := range history {
		if m.ID == msg.ID {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateMessageID, msg.ID)
		}
	}
	out := make([]domain.Message, len(history), len(history)+1)
	copy(out, history)
	return append(out, msg), nil
}

// Transcript flattens a history into "<label>: <text>" lines joined by
// newlines, with no trailing newline. Text is included verbatim.
func Transcript(history []domain.Message, assistantLabel string) string {
	var b strings.Builder
	for i, m := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		if m.IsUser() {
			b.WriteString(userLabel)
		} else {
			b.WriteString(assistantLabel)
		}
		b.WriteString(": ")
		b.WriteString(m.Text)
	}
	return b.String()
}
