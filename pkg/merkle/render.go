package merkle

import (
	"fmt"
	"strings"
)

// Render draws the node array as a tree, one node per line:
//
//	0) 0x...
//	├─ 1) 0x...
//	│  ├─ 3) 0x...
//	│  └─ 4) 0x...
//	└─ 2) 0x...
func (t *Tree) Render() string {
	var sb strings.Builder
	t.renderNode(&sb, 0, "", "")
	return strings.TrimSuffix(sb.String(), "\n")
}

func (t *Tree) renderNode(sb *strings.Builder, i int, prefix, childPrefix string) {
	fmt.Fprintf(sb, "%s%d) %s\n", prefix, i, t.nodes[i].Hex())

	l, r := leftChild(i), rightChild(i)
	if l >= len(t.nodes) {
		return
	}
	t.renderNode(sb, l, childPrefix+"├─ ", childPrefix+"│  ")
	t.renderNode(sb, r, childPrefix+"└─ ", childPrefix+"   ")
}
