package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ghost-1", "ghost 1"},
		{"  The  Stasi!  ", "the stasi"},
		{"COINTELPRO's", "cointelpro s"},
		{"---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"same", "same", 0},
		{"zersetzung", "zersetsung", 1},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, 1.0, String("ghost-1", "Ghost 1"))
	assert.Equal(t, 0.0, String("", "anything"))
	assert.InDelta(t, 0.75, String("abcd", "abcx"), 1e-9)
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b Set
		want float64
	}{
		{"identical", NewSet("siege"), NewSet("siege"), 1.0},
		{"half", NewSet("a", "b"), NewSet("b", "c", "a", "d"), 0.5},
		{"disjoint", NewSet("a"), NewSet("b"), 0},
		{"both empty", NewSet(), NewSet(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jaccard(tt.a, tt.b), 1e-9)
		})
	}
}
