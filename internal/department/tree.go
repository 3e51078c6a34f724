package department

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed departments.toml
var defaultConfig []byte

// Node is one department tree node. Leaves have no children.
type Node struct {
	Label string `toml:"label"`
	Sub   []Node `toml:"sub"`
}

type treeConfig struct {
	Departments []Node `toml:"departments"`
}

// Tree is the static department hierarchy, loaded once at process start and
// never mutated afterwards. Lookups degrade gracefully: an unknown segment
// yields empty children / false validity, never an error.
type Tree struct {
	roots []Node
	index map[string]*Node // canonical path key -> node
}

// Load reads the department hierarchy from a TOML file. An empty path loads
// the embedded default configuration.
func Load(path string) (*Tree, error) {
	data := defaultConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read department config: %w", err)
		}
		data = b
	}

	var cfg treeConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse department config: %w", err)
	}
	if len(cfg.Departments) == 0 {
		return nil, fmt.Errorf("department config defines no departments")
	}

	t := &Tree{roots: cfg.Departments, index: make(map[string]*Node)}
	for i := range t.roots {
		t.indexNode(&t.roots[i], nil)
	}
	return t, nil
}

func (t *Tree) indexNode(n *Node, parent Path) {
	path := append(append(Path{}, parent...), n.Label)
	t.index[path.Key()] = n
	for i := range n.Sub {
		t.indexNode(&n.Sub[i], path)
	}
}

// Roots returns the top-level (Main category) nodes.
func (t *Tree) Roots() []Node {
	return t.roots
}

// Children returns the child segment labels of the given path. The root
// labels are returned for an empty path; an unknown path yields nil.
func (t *Tree) Children(path Path) []string {
	var nodes []Node
	if path.Depth() == 0 {
		nodes = t.roots
	} else {
		n, ok := t.index[path.Key()]
		if !ok {
			return nil
		}
		nodes = n.Sub
	}
	labels := make([]string, 0, len(nodes))
	for _, c := range nodes {
		labels = append(labels, c.Label)
	}
	return labels
}

// IsValid reports whether every segment of the path exists in the tree.
// Indexing covers ancestors, so validity of a node implies validity of its
// whole ancestor chain.
func (t *Tree) IsValid(path Path) bool {
	if path.Depth() == 0 || path.Depth() > MaxDepth {
		return false
	}
	_, ok := t.index[path.Key()]
	return ok
}

// Depth returns the hierarchy depth of the path (1=Main, 2=Sub, 3=SubSub),
// or -1 when the path is not part of the tree.
func (t *Tree) Depth(path Path) int {
	if !t.IsValid(path) {
		return -1
	}
	return path.Depth()
}
