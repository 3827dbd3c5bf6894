package jira

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeJQL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "billing exporter", "billing exporter"},
		{"quotes escaped", `say "hi"`, `say \"hi\"`},
		{"backslash escaped", `path\to\file`, `path\\to\\file`},
		{"control chars stripped", "a\x00b\x1fc\x7fd", "abcd"},
		{"keywords removed", "login AND password OR token", "login password token"},
		{"order by removed", "sort ORDER BY created", "sort created"},
		{"keyword inside word kept", "band candor", "band candor"},
		{"mixed case keyword removed", "a And b nOt c", "a b c"},
		{"collapses whitespace", "a  AND   b", "a b"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeJQL(tc.in))
		})
	}
}

func TestValidProjectKey(t *testing.T) {
	valid := []string{"AB", "PROJ", "A1", "TEAM42", "ABCDEFGHIJ"}
	for _, key := range valid {
		assert.True(t, ValidProjectKey(key), key)
	}

	invalid := []string{"", "A", "a", "proj", "1AB", "AB-1", "ABCDEFGHIJK", `PROJ" OR 1=1`}
	for _, key := range invalid {
		assert.False(t, ValidProjectKey(key), key)
	}
}
