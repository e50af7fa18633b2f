package provenance

import (
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

const (
	separator  = ','
	openParen  = '('
	closeParen = ')'
)

var (
	ErrSyntax      = errors.New("malformed build string")
	ErrUnknownLeaf = errors.New("leaf does not reference a known record")
)

type node struct {
	record   *types.Record
	children []*node
}

func (n *node) isLeaf() bool {
	return n.record != nil
}

func (n *node) string(sb *strings.Builder) {
	if n.isLeaf() {
		sb.WriteString(strconv.Itoa(n.record.ID))
		return
	}
	sb.WriteByte(openParen)
	for i, c := range n.children {
		if i > 0 {
			sb.WriteByte(separator)
		}
		c.string(sb)
	}
	sb.WriteByte(closeParen)
}

func (n *node) equalUpToOrder(o *node) bool {
	if n.isLeaf() || o.isLeaf() {
		return n.isLeaf() && o.isLeaf() && n.record.ID == o.record.ID
	}
	if len(n.children) != len(o.children) {
		return false
	}

	// equalUpToOrder is an equivalence relation, so greedy matching finds a bijection whenever one exists
	matched := make([]bool, len(o.children))
	for _, c := range n.children {
		found := false
		for i, oc := range o.children {
			if !matched[i] && c.equalUpToOrder(oc) {
				matched[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (n *node) leaves(out []int) []int {
	if n.isLeaf() {
		return append(out, n.record.ID)
	}
	for _, c := range n.children {
		out = c.leaves(out)
	}
	return out
}

// Tree records how a composite description was assembled. The root is always an inner node.
type Tree struct {
	root *node
}

func New() *Tree {
	return &Tree{root: &node{}}
}

// FromRecords builds a flat tree with one leaf per record.
func FromRecords(records ...*types.Record) *Tree {
	t := New()
	for _, r := range records {
		t.root.children = append(t.root.children, &node{record: r})
	}
	return t
}

// Parse reconstructs a tree from its build string. Every leaf must reference one of records.
// A bare leaf id without parentheses is accepted and becomes the single child of the root.
func Parse(buildString string, records []*types.Record) (*Tree, error) {
	m := make(map[int]*types.Record, len(records))
	for _, r := range records {
		m[r.ID] = r
	}

	s := strings.TrimSpace(buildString)
	if s == "" {
		return nil, errors.Wrap(ErrSyntax, "empty build string")
	}

	if s[0] != openParen {
		leaf, err := parseLeaf(s, m)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %q", buildString)
		}
		return &Tree{root: &node{children: []*node{leaf}}}, nil
	}

	root, err := parseNode(s, m)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q", buildString)
	}
	return &Tree{root: root}, nil
}

func parseNode(s string, m map[int]*types.Record) (*node, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(ErrSyntax, "empty element")
	}
	if s[0] != openParen {
		return parseLeaf(s, m)
	}
	if s[len(s)-1] != closeParen {
		return nil, errors.Wrapf(ErrSyntax, "unterminated group %q", s)
	}

	n := &node{}
	body := s[1 : len(s)-1]
	if strings.TrimSpace(body) == "" {
		return n, nil
	}

	depth, start := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case openParen:
			depth++
		case closeParen:
			depth--
			if depth < 0 {
				return nil, errors.Wrapf(ErrSyntax, "unbalanced parentheses in %q", s)
			}
		case separator:
			if depth > 0 {
				continue
			}
			c, err := parseNode(body[start:i], m)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, c)
			start = i + 1
		}
	}
	if depth != 0 {
		return nil, errors.Wrapf(ErrSyntax, "unbalanced parentheses in %q", s)
	}

	c, err := parseNode(body[start:], m)
	if err != nil {
		return nil, err
	}
	n.children = append(n.children, c)

	return n, nil
}

func parseLeaf(s string, m map[int]*types.Record) (*node, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrapf(ErrSyntax, "invalid leaf id %q", s)
	}
	r, ok := m[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownLeaf, "id %d", id)
	}
	return &node{record: r}, nil
}

// AddTopSiblings records a merge of records into the tree. An empty tree, an empty merge or a tree
// holding a single leaf is extended in place; otherwise the whole tree is nested one level deeper
// and the records become its siblings.
func (t *Tree) AddTopSiblings(records ...*types.Record) {
	root := t.root
	if !(len(root.children) == 0 || len(records) == 0 || (len(root.children) == 1 && root.children[0].isLeaf())) {
		root = &node{children: []*node{t.root}}
	}
	for _, r := range records {
		root.children = append(root.children, &node{record: r})
	}
	t.root = root
}

func (t *Tree) AddTopSibling(r *types.Record) {
	t.AddTopSiblings(r)
}

func (t *Tree) EqualUpToOrder(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.root.equalUpToOrder(other.root)
}

// Size returns the number of leaves.
func (t *Tree) Size() int {
	return len(t.root.leaves(nil))
}

// Leaves returns the referenced record ids in ascending order. Duplicates are kept.
func (t *Tree) Leaves() []int {
	ids := t.root.leaves(nil)
	slices.Sort(ids)
	return ids
}

func (t *Tree) String() string {
	var sb strings.Builder
	t.root.string(&sb)
	return sb.String()
}

// EquivalentBuildStrings reports whether two build strings describe trees equal up to child order.
func EquivalentBuildStrings(a, b string, records []*types.Record) (bool, error) {
	ta, err := Parse(a, records)
	if err != nil {
		return false, errors.Wrap(err, "parse lhs")
	}
	tb, err := Parse(b, records)
	if err != nil {
		return false, errors.Wrap(err, "parse rhs")
	}
	return ta.EqualUpToOrder(tb), nil
}
