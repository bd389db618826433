package antipublic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIdentity(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"email pass name", "steve@mail.com:hunter2:Notch", "Notch", true},
		{"three parts trims", "a@b.c:pw:  Dream  ", "Dream", true},
		{"last looks like email falls back to first", "Techno:pw:user@mail.com", "Techno", true},
		{"user pass", "Philza:secret", "Philza", true},
		{"email pass", "user@mail.com:secret", "", false},
		{"host first", "mail.example:secret", "", false},
		{"single field", "justtext", "", false},
		{"empty", "", "", false},
		{"empty last and first", " :pw: ", "", false},
		{
			"token record",
			"2024-01-01 - Premium - EU - 123 - [Skeppy] | accesstoken: eyJabc.def",
			"Skeppy", true,
		},
		{
			"token record without brackets falls back to colon fields",
			"a - b - c - d - Skeppy | accesstoken: abc",
			"a - b - c - d - Skeppy | accesstoken", true,
		},
		{"token record with empty name", "a - b - c - d - [] | accesstoken:x", "", false},
		{"token record with blank name", "a - b - c - d - [  ] | accesstoken:x", "", false},
		{"token record name is trimmed", "a - b - c - d - [ Sapnap ] | accesstoken:x", "Sapnap", true},
		{
			"token record too few segments",
			"a - b - [Bad] | accesstoken: abc.def",
			"a - b - [Bad] | accesstoken", true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractIdentity(tt.content)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "notch", Key("  NoTcH "))
	assert.Equal(t, "", Key("   "))
}
