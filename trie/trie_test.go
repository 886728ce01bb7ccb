package trie_test

import (
	"slices"
	"testing"

	"grol.io/rhai/trie"
)

func TestTrie_InsertAndContains(t *testing.T) {
	trie := trie.NewTrie()

	// Insert "ABC" and check containment
	trie.Insert("ABC")
	if !trie.Contains("ABC") {
		t.Error("Expected to find 'ABC', but it was not found.")
	}
	if trie.Contains("AB") {
		t.Error("Expected 'AB' to be not found, but it was found.")
	}
	if trie.Contains("ABCD") {
		t.Error("Expected 'ABCD' to be not found, but it was found.")
	}
	p := trie.Prefix("ABC")
	if !p.IsLeaf() {
		t.Errorf("Expected to find 'ABC' as the shared leaf node but it isn't: %+v", p)
	}
	trie.Insert("AB2")
	p = trie.Prefix("ABC")
	if !p.IsLeaf() {
		t.Errorf("Expected to find 'ABC' still as the shared leaf node but it isn't: %+v", p)
	}
	p2 := trie.Prefix("AB2")
	if p2 != p {
		t.Errorf("Expected 'ABC' and 'AB2' to share the same leaf node but they don't: %#v != %#v", p, p2)
	}
	if trie.Contains("AB") {
		t.Error("Expected 'AB' to be not found, but it was found after adding 'AB2'.")
	}
	if !trie.Contains("AB2") {
		t.Error("Expected to find 'AB2', but it was not found.")
	}
	if !trie.Contains("ABC") {
		t.Error("Expected to find 'ABC', but it was not found after adding 'AB2'.")
	}
	// Insert "ABCD" and check both "ABC" and "ABCD"
	trie.Insert("ABCD")
	if !trie.Contains("ABC") {
		t.Error("Expected to find 'ABC', but it was not found after adding 'ABCD'.")
	}
	if !trie.Contains("ABCD") {
		t.Error("Expected to find 'ABCD', but it was not found.")
	}

	// Ensure no additional levels were created
	//	if len(trie.children['a'].children['b'].children['c'].children) != 1 {
	//		t.Error("Expected no additional levels after 'c' when adding 'ABC'.")
	//	}
}

func TestTrie_ShorterWordAfter(t *testing.T) {
	tr := trie.NewTrie()
	tr.Insert("print")
	tr.Insert("pr")
	if !tr.Contains("pr") {
		t.Error("Expected to find 'pr' inserted after 'print'")
	}
	if tr.Contains("pri") {
		t.Error("Expected 'pri' to be not found")
	}
}

func TestTrie_PrefixAll(t *testing.T) {
	tr := trie.NewTrie()
	for _, w := range []string{"print(", "parse_int(", "parse_float(", "pad(", "let"} {
		tr.Insert(w)
	}
	tests := []struct {
		prefix string
		common int
		words  []string
	}{
		{"pa", 2, []string{"pad(", "parse_float(", "parse_int("}},
		{"pars", 6, []string{"parse_float(", "parse_int("}},
		{"pr", 6, []string{"print("}},
		{"let", 3, []string{"let"}},
		{"x", 0, nil},
		{"lets", 0, nil},
	}
	for _, tt := range tests {
		common, words := tr.PrefixAll(tt.prefix)
		if common != tt.common || !slices.Equal(words, tt.words) {
			t.Errorf("PrefixAll(%q) = %d %v, want %d %v", tt.prefix, common, words, tt.common, tt.words)
		}
	}
}
