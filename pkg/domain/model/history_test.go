package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/domain/types"
)

func user(content string) model.HistoryEntry {
	return model.HistoryEntry{Role: types.RoleUser, Content: content}
}

func assistant(content string) model.HistoryEntry {
	return model.HistoryEntry{Role: types.RoleAssistant, Content: content}
}

func TestFilterHistory(t *testing.T) {
	testCases := map[string]struct {
		in   []model.HistoryEntry
		want []model.HistoryEntry
	}{
		"empty": {
			in:   nil,
			want: nil,
		},
		"alternating passes through": {
			in:   []model.HistoryEntry{user("u1"), assistant("a1"), user("u2")},
			want: []model.HistoryEntry{user("u1"), assistant("a1"), user("u2")},
		},
		"consecutive user turns drop the older": {
			in:   []model.HistoryEntry{user("u1"), user("u2"), assistant("a1"), user("u3")},
			want: []model.HistoryEntry{user("u2"), assistant("a1"), user("u3")},
		},
		"consecutive assistant turns drop the older": {
			in:   []model.HistoryEntry{user("u1"), assistant("a1"), assistant("a2"), user("u2")},
			want: []model.HistoryEntry{user("u1"), assistant("a2"), user("u2")},
		},
		"trailing assistant dropped": {
			in:   []model.HistoryEntry{user("u1"), assistant("a1")},
			want: []model.HistoryEntry{user("u1")},
		},
		"leading assistant before a full turn is kept": {
			in:   []model.HistoryEntry{assistant("a0"), user("u1"), assistant("a1"), user("u2")},
			want: []model.HistoryEntry{assistant("a0"), user("u1"), assistant("a1"), user("u2")},
		},
		"assistant only yields empty": {
			in:   []model.HistoryEntry{assistant("a1"), assistant("a2")},
			want: nil,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got := model.FilterHistory(tc.in)
			gt.Equal(t, got, tc.want)

			if len(got) > 0 {
				// Every non-empty result ends with the question being asked
				gt.Equal(t, got[len(got)-1].Role, types.RoleUser)
				for i := 1; i < len(got); i++ {
					gt.True(t, got[i].Role != got[i-1].Role)
				}
			}
		})
	}
}

func TestFilterHistoryWindow(t *testing.T) {
	// 13 alternating messages; only the newest 2*HistoryLimit are considered
	var in []model.HistoryEntry
	for i := 0; i < 6; i++ {
		in = append(in, user("u"), assistant("a"))
	}
	in = append(in, user("last"))

	got := model.FilterHistory(in)
	gt.A(t, got).Length(model.HistoryLimit * 2).Required()
	gt.Equal(t, got[0].Role, types.RoleAssistant)
	gt.Equal(t, got[len(got)-1].Content, "last")
}

func TestLastQuestion(t *testing.T) {
	gt.Equal(t, model.LastQuestion(nil), "")
	gt.Equal(t, model.LastQuestion([]model.HistoryEntry{user("u1"), assistant("a1")}), "")
	gt.Equal(t, model.LastQuestion([]model.HistoryEntry{assistant("a1"), user("u1")}), "u1")
}
