package normalize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLower(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Java Basics", "java basics"},
		{"ÉCOLE", "école"},
		{"already lower", "already lower"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Lower(tt.in), tt.in)
	}
}

func TestLower_ComposedAndDecomposedAgree(t *testing.T) {
	decomposed := "Cafe\u0301"
	composed := "Caf\u00e9"
	assert.Equal(t, Lower(composed), Lower(decomposed))
}

func TestTerm(t *testing.T) {
	assert.Equal(t, "java", Term("  Java \n"))
	assert.Equal(t, "", Term(" \t "))
	assert.Equal(t, "java basics", Term("Java  \t basics"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "How do I use goroutines?", Title("  How do I use   goroutines?  "))
}

func TestTag(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Go", "go"},
		{"Go Lang", "go-lang"},
		{"C#", "c#"},
		{"c++", "c++"},
		{"Node.JS", "node.js"},
		{"slow_burn", "slow-burn"},
		{"--leading--", "leading"},
		{"🐉 dragons!", "dragons"},
		{"Ünïcode", "unicode"},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tag(tt.in))
		})
	}
}

func TestTag_Truncates(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnop"
	assert.Len(t, Tag(long), MaxTagLength)
}

func TestTags_DedupesAndKeepsOrder(t *testing.T) {
	got := Tags([]string{"Go", "concurrency", "go", " ", "GO", "Channels"})
	assert.Equal(t, []string{"go", "concurrency", "channels"}, got)
}

func TestUsername(t *testing.T) {
	u, ok := Username("  Alice_01 ")
	assert.True(t, ok)
	assert.Equal(t, "alice_01", u)

	_, ok = Username("no spaces allowed")
	assert.False(t, ok)

	_, ok = Username("ab")
	assert.False(t, ok)
}

func TestMentions(t *testing.T) {
	tests := []struct {
		body string
		want []string
	}{
		{"no mentions here", nil},
		{"@Ada have a look", []string{"ada"}},
		{"thanks @ada and @linus_t, also @ADA", []string{"ada", "linus_t"}},
		{"(cc @grace)", []string{"grace"}},
		{"mail me at ada@example.com", nil},
		{"@ab is too short", nil},
		{"@@ada is not a mention", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mentions(tt.body), tt.body)
	}
}

func TestMentions_Capped(t *testing.T) {
	var b strings.Builder
	for i := range MaxMentions + 5 {
		fmt.Fprintf(&b, "@user%02d ", i)
	}
	assert.Len(t, Mentions(b.String()), MaxMentions)
}
