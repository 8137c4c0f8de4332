package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rushteam/feedrank/core"
)

type appendNode struct {
	name string
	id   string
	err  error
}

func (n *appendNode) Name() string { return n.name }
func (n *appendNode) Kind() Kind   { return KindReRank }
func (n *appendNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if n.err != nil {
		return nil, n.err
	}
	return append(items, core.NewItem(&core.Video{ID: n.id})), nil
}

func TestPipeline_Run(t *testing.T) {
	p := &Pipeline{Nodes: []Node{
		&appendNode{name: "a", id: "1"},
		&appendNode{name: "b", id: "2"},
	}}
	out, err := p.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].VideoID != "1" || out[1].VideoID != "2" {
		t.Errorf("out = %+v", out)
	}
	if got := strings.Join(p.Names(), ","); got != "a,b" {
		t.Errorf("Names() = %s", got)
	}
}

func TestPipeline_RunWrapsNodeError(t *testing.T) {
	boom := errors.New("boom")
	p := &Pipeline{Nodes: []Node{&appendNode{name: "bad", err: boom}}}
	_, err := p.Run(context.Background(), nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapping boom", err)
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("err = %v, want node name", err)
	}
}

func TestPipeline_RunStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Pipeline{Nodes: []Node{&appendNode{name: "a", id: "1"}}}
	if _, err := p.Run(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestConfig_BuildPipeline(t *testing.T) {
	content := `
name: test
nodes:
  - type: append
    config:
      id: x
  - type: append
    config:
      id: y
`
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatal(err)
	}

	f := NewNodeFactory()
	f.Register("append", func(c map[string]interface{}) (Node, error) {
		id, _ := c["id"].(string)
		return &appendNode{name: "append." + id, id: id}, nil
	})
	if !f.Has("append") || f.Has("missing") {
		t.Error("Has() mismatch")
	}
	if got := f.Types(); len(got) != 1 || got[0] != "append" {
		t.Errorf("Types() = %v", got)
	}

	p, err := cfg.BuildPipeline(f)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(p.Names(), ","); got != "append.x,append.y" {
		t.Errorf("Names() = %s", got)
	}

	cfg.Nodes = append(cfg.Nodes, NodeConfig{Type: "missing"})
	if _, err := cfg.BuildPipeline(f); err == nil {
		t.Error("unknown node type built")
	}
}
