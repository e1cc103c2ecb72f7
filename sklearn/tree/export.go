package tree

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"go.uber.org/multierr"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// ParseFormat maps "png", "svg", "jpg" or "dot" to a Graphviz output format.
func ParseFormat(name string) (graphviz.Format, error) {
	format, ok := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
		"dot": graphviz.XDOT,
	}[strings.ToLower(name)]
	if !ok {
		return "", scierrors.NewConfigurationError("format", "must be one of png, svg, jpg, dot", name)
	}
	return format, nil
}

// Render draws the tree with Graphviz and writes it to w. Split nodes show their test and
// leaves their prediction; the left child of a split is the branch where the test holds.
// featureNames may be nil.
func (t *Tree) Render(w io.Writer, format graphviz.Format, featureNames []string) (err error) {
	if err := t.Validate(); err != nil {
		return err
	}
	gv := graphviz.New()
	defer multierr.AppendInvoke(&err, multierr.Close(gv))

	graph, err := gv.Graph()
	if err != nil {
		return scierrors.Wrap(err, "tree: failed to create graph")
	}
	defer multierr.AppendInvoke(&err, multierr.Close(graph))

	if err := t.draw(graph, t.Root, nil, featureNames); err != nil {
		return err
	}
	if err := gv.Render(graph, format, w); err != nil {
		return scierrors.Wrap(err, "tree: failed to render graph")
	}
	return nil
}

// DOT returns the Graphviz source of the tree.
func (t *Tree) DOT(featureNames []string) (string, error) {
	var buf bytes.Buffer
	if err := t.Render(&buf, graphviz.XDOT, featureNames); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (t *Tree) draw(g *cgraph.Graph, i int, parent *cgraph.Node, featureNames []string) error {
	current, err := g.CreateNode(fmt.Sprintf("n%d", i))
	if err != nil {
		return scierrors.Wrap(err, "tree: failed to create node")
	}
	if parent != nil {
		if _, err := g.CreateEdge("", parent, current); err != nil {
			return scierrors.Wrap(err, "tree: failed to create edge")
		}
	}

	node := &t.Nodes[i]
	if node.IsLeaf() {
		current.Set("label", t.leafDescription(node))
		current.Set("shape", "box")
		return nil
	}
	current.Set("label", t.splitDescription(node, featureNames))
	if err := t.draw(g, node.Left, current, featureNames); err != nil {
		return err
	}
	return t.draw(g, node.Right, current, featureNames)
}

func (t *Tree) splitDescription(node *Node, featureNames []string) string {
	name := fmt.Sprintf("x[%d]", node.Feature)
	if node.Feature < len(featureNames) {
		name = featureNames[node.Feature]
	}
	return fmt.Sprintf("%s < %.4g\nimpurity = %.4g\nsamples = %d", name, node.Threshold, node.Impurity, node.NSamples)
}

func (t *Tree) leafDescription(node *Node) string {
	if t.Classes == nil {
		return fmt.Sprintf("value = %.4g\nsamples = %d", node.Value[0], node.NSamples)
	}
	return fmt.Sprintf("class = %d\ncounts = %v\nsamples = %d", t.Classes[argmax(node.Value)], node.Counts, node.NSamples)
}
