package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"alice@mergington.edu":      "alice@mergington.edu",
		"  Alice@Mergington.EDU \t": "alice@mergington.edu",
		"a@b.co":                    "a@b.co",
		"first.last@sub.school.org": "first.last@sub.school.org",
		"weird+tag@x.y":             "weird+tag@x.y",
	}
	for raw, want := range cases {
		got, err := NormalizeEmail(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
}

func TestNormalizeEmailRejectsInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"not-an-email",
		"@mergington.edu",
		"alice@",
		"alice@mergington",
		"alice@@mergington.edu",
		"al ice@mergington.edu",
		"alice@merg ington.edu",
		"alice@mergington.",
		"alice@.edu",
		"a\vb@mergington.edu",
		"a\u00a0b@mergington.edu",
		"a\u0085b@mergington.edu",
		"alice@x\u2003y.edu",
		"alice@mergington\u3000.edu",
	} {
		_, err := NormalizeEmail(raw)
		require.ErrorIs(t, err, ErrInvalidEmail, "%q", raw)
	}
}
