package model

import "github.com/seiri-lab/mathrag/pkg/domain/types"

// HistoryLimit is the maximum number of conversation turns considered per
// request. The alternation filter looks at a window of twice this many
// messages.
const HistoryLimit = 6

// HistoryEntry is one turn of the conversation
type HistoryEntry struct {
	Role    types.Role `json:"role"`
	Content string     `json:"content"`
}

// FilterHistory reduces a raw message sequence to a strictly alternating
// user/assistant subsequence ending in a user entry. Entries violating
// alternation are dropped. Only the most recent window of 2*HistoryLimit
// messages is considered. If the newest user message was dropped by the
// alternation scan, it is re-appended so the sequence always ends with the
// question being asked.
func FilterHistory(messages []HistoryEntry) []HistoryEntry {
	if len(messages) > HistoryLimit*2 {
		messages = messages[len(messages)-HistoryLimit*2:]
	}

	var valid []HistoryEntry
	var lastUser *HistoryEntry
	expected := types.RoleUser

	// Scan newest to oldest, prepending accepted entries
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		switch {
		case msg.Role == types.RoleUser:
			if lastUser == nil {
				m := msg
				lastUser = &m
			}
			if expected == types.RoleUser {
				valid = append([]HistoryEntry{msg}, valid...)
				expected = types.RoleAssistant
			}
		case msg.Role == types.RoleAssistant && expected == types.RoleAssistant:
			valid = append([]HistoryEntry{msg}, valid...)
			expected = types.RoleUser
		}
	}

	if lastUser != nil && (len(valid) == 0 || valid[len(valid)-1].Role != types.RoleUser) {
		valid = append(valid, *lastUser)
	}

	return valid
}

// LastQuestion returns the content of the final user entry, or empty if the
// history does not end with a user turn.
func LastQuestion(history []HistoryEntry) string {
	if len(history) == 0 {
		return ""
	}
	last := history[len(history)-1]
	if last.Role != types.RoleUser {
		return ""
	}
	return last.Content
}
