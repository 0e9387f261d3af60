package integration

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/zoobzio/durationz"
)

// Capture wraps a session recording both to a file and to memory, so a test
// can compare what was captured with what the log reads back as.
//
//nolint:govet // Field alignment optimized for test helper readability
type Capture struct {
	*durationz.Session
	Path string
	t    *testing.T
}

// NewCapture creates a session writing to a file in a temporary directory.
func NewCapture(t *testing.T, opts ...durationz.Option) *Capture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "durations.ndjson")
	session, err := durationz.New(append([]durationz.Option{
		durationz.WithDurationsFile(path),
		durationz.WithCollector(),
	}, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &Capture{Session: session, Path: path, t: t}
}

// Finish closes the session and loads the log it wrote.
func (c *Capture) Finish() *durationz.Trace {
	c.t.Helper()
	if err := c.Close(); err != nil {
		c.t.Fatalf("Close failed: %v", err)
	}
	trace, err := durationz.LoadFiles(c.Path)
	if err != nil {
		c.t.Fatalf("LoadFiles failed: %v", err)
	}
	return trace
}

// InstanceNamed returns the only instance called name.
func InstanceNamed(t *testing.T, trace *durationz.Trace, name string) *durationz.Instance {
	t.Helper()
	var found *durationz.Instance
	for i := range trace.Instances {
		if trace.Instances[i].Name != name {
			continue
		}
		if found != nil {
			t.Fatalf("More than one instance named '%s'", name)
		}
		found = &trace.Instances[i]
	}
	if found == nil {
		t.Fatalf("Instance named '%s' not found", name)
	}
	return found
}

// AssertParentChild verifies that child names parent as its nearest parent.
func AssertParentChild(t *testing.T, trace *durationz.Trace, parentName, childName string) {
	t.Helper()
	parent := InstanceNamed(t, trace, parentName)
	child := InstanceNamed(t, trace, childName)
	if len(child.Parents) == 0 {
		t.Errorf("Parent-child relationship broken: %s has no parents", childName)
		return
	}
	if child.Parents[0] != parent.Key.ID {
		t.Errorf("Parent-child relationship broken: %s is not parent of %s. Child parents=%v, parent id=%d",
			parentName, childName, child.Parents, parent.Key.ID)
	}
}

// AssertWithin verifies that every interval of inner lies inside the
// lifetime of outer.
func AssertWithin(t *testing.T, trace *durationz.Trace, outerName, innerName string) {
	t.Helper()
	outer := InstanceNamed(t, trace, outerName)
	inner := InstanceNamed(t, trace, innerName)
	for _, idx := range inner.Intervals {
		iv := trace.Intervals[idx]
		if iv.Start < outer.Open || iv.End > outer.Close {
			t.Errorf("%s [%v, %v] outside %s [%v, %v]",
				innerName, iv.Start, iv.End, outerName, outer.Open, outer.Close)
		}
	}
}

// SpanTree is a hierarchical view of the instances of a trace.
type SpanTree struct {
	Instance *durationz.Instance
	Children []*SpanTree
}

// BuildSpanTree nests instances under their nearest parent. Instances whose
// parent never recorded an interval become roots.
func BuildSpanTree(trace *durationz.Trace) []*SpanTree {
	nodes := make(map[durationz.SpanID]*SpanTree)
	for i := range trace.Instances {
		in := &trace.Instances[i]
		nodes[in.Key.ID] = &SpanTree{Instance: in}
	}

	roots := make([]*SpanTree, 0)
	for i := range trace.Instances {
		in := &trace.Instances[i]
		node := nodes[in.Key.ID]
		if len(in.Parents) == 0 {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[in.Parents[0]]; ok && parent != node {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots
}

// PrintSpanTree formats a span tree for debugging, children by open time.
func PrintSpanTree(trees []*SpanTree) string {
	var sb strings.Builder
	for _, tree := range trees {
		printTreeNode(&sb, tree, 0)
	}
	return sb.String()
}

func printTreeNode(sb *strings.Builder, node *SpanTree, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s%s (%.2fms open, %d intervals)\n",
		indent, node.Instance.Name, float64(node.Instance.Lifetime())/float64(time.Millisecond), len(node.Instance.Intervals))
	sort.SliceStable(node.Children, func(i, j int) bool {
		return node.Children[i].Instance.Open < node.Children[j].Instance.Open
	})
	for _, child := range node.Children {
		printTreeNode(sb, child, depth+1)
	}
}
