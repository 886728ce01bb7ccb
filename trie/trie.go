// Trie implements a byte trie, used for the REPL's tab completion of
// keywords and function names.
// It is fast as it uses arrays instead of maps.
package trie // import "grol.io/rhai/trie"

type Trie struct {
	// Children of this node
	children [256]*Trie
	// This node itself is a valid word end in addition to having children.
	valid bool
	leaf  bool
}

// Shared end marker for leaves, the only one having "leaf" set.
var endMarker = &Trie{valid: true, leaf: true}

func NewTrie() *Trie {
	return &Trie{}
}

func (t *Trie) Insert(word string) {
	l := len(word)
	for i := range l {
		char := word[i]
		last := i == l-1
		switch child := t.children[char]; {
		case child == nil && last:
			t.children[char] = endMarker
		case child == nil:
			t.children[char] = &Trie{}
		case child == endMarker && !last:
			// was a word end, now also a prefix.
			t.children[char] = &Trie{valid: true}
		case last:
			child.valid = true
		}
		t = t.children[char]
	}
}

func (t *Trie) Contains(word string) bool {
	return t.Prefix(word).IsValid()
}

func (t *Trie) Prefix(word string) *Trie {
	for i := range len(word) {
		if t == nil {
			return nil
		}
		t = t.children[word[i]]
	}
	return t
}

func (t *Trie) IsLeaf() bool {
	return t != nil && t.leaf
}

func (t *Trie) IsValid() bool {
	return t != nil && t.valid
}

// PrefixAll returns all the words starting with prefix, in byte order, and
// the length of their longest common prefix.
func (t *Trie) PrefixAll(prefix string) (int, []string) {
	n := t.Prefix(prefix)
	if n == nil {
		return 0, nil
	}
	var words []string
	buf := []byte(prefix)
	n.walk(&buf, &words)
	if len(words) == 0 {
		return 0, nil
	}
	common := len(words[0])
	for _, w := range words[1:] {
		i := 0
		for i < common && i < len(w) && w[i] == words[0][i] {
			i++
		}
		common = i
	}
	return common, words
}

func (t *Trie) walk(buf *[]byte, words *[]string) {
	if t.valid {
		*words = append(*words, string(*buf))
	}
	if t.leaf {
		return
	}
	for c, child := range t.children {
		if child == nil {
			continue
		}
		*buf = append(*buf, byte(c))
		child.walk(buf, words)
		*buf = (*buf)[:len(*buf)-1]
	}
}
