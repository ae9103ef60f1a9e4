package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapacityAdmits(t *testing.T) {
	require.True(t, Unlimited().Admits(1_000_000))
	require.True(t, Bounded(2).Admits(1))
	require.False(t, Bounded(2).Admits(2))
	require.False(t, Bounded(0).Admits(0))
	require.False(t, Bounded(-3).Admits(0))

	limit, ok := Bounded(12).Limit()
	require.True(t, ok)
	require.Equal(t, 12, limit)

	_, ok = Unlimited().Limit()
	require.False(t, ok)
}

func TestCapacityJSON(t *testing.T) {
	data, err := json.Marshal(Activity{MaxParticipants: Bounded(12), Participants: []string{}})
	require.NoError(t, err)
	require.JSONEq(t, `{"description":"","schedule":"","max_participants":12,"participants":[]}`, string(data))

	data, err = json.Marshal(Activity{Participants: []string{}})
	require.NoError(t, err)
	require.JSONEq(t, `{"description":"","schedule":"","max_participants":null,"participants":[]}`, string(data))

	var decoded Activity
	require.NoError(t, json.Unmarshal([]byte(`{"max_participants": 5}`), &decoded))
	require.Equal(t, Bounded(5), decoded.MaxParticipants)

	for _, raw := range []string{`{"max_participants": null}`, `{"max_participants": "12"}`, `{"max_participants": 2.5}`, `{}`} {
		decoded = Activity{MaxParticipants: Bounded(1)}
		require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
		if raw == `{}` {
			continue
		}
		require.Equal(t, Unlimited(), decoded.MaxParticipants, raw)
	}
}

func TestActivityCloneIsIndependent(t *testing.T) {
	original := Activity{Participants: []string{"a@x.edu"}}
	clone := original.Clone()
	clone.Participants[0] = "b@x.edu"

	require.Equal(t, "a@x.edu", original.Participants[0])
}

func TestActivityIndexOfNormalizesStoredEntries(t *testing.T) {
	a := Activity{Participants: []string{"a@x.edu", " B@X.edu "}}

	require.Equal(t, 1, a.IndexOf("b@x.edu"))
	require.Equal(t, -1, a.IndexOf("c@x.edu"))
}
