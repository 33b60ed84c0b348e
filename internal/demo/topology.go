package demo

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed topology.yaml
var topologyYAML []byte

// NodeType classifies a topology node for coloring.
type NodeType string

const (
	NodeClient  NodeType = "client"
	NodeService NodeType = "service"
	NodeBackend NodeType = "backend"
)

// Node is a box of the topology diagram at a fixed position.
type Node struct {
	ID    string   `yaml:"id"`
	Label string   `yaml:"label"`
	X     int      `yaml:"x"`
	Y     int      `yaml:"y"`
	Type  NodeType `yaml:"type"`
}

// Lines splits a multi-line label.
func (n Node) Lines() []string {
	return strings.Split(n.Label, "\n")
}

// Fill returns the node's background color.
func (n Node) Fill() string {
	switch n.Type {
	case NodeService:
		return "#e0e7ff"
	case NodeBackend:
		return "#fef3c7"
	default:
		return "#f1f5f9"
	}
}

// Stroke returns the node's border color.
func (n Node) Stroke() string {
	switch n.Type {
	case NodeService:
		return "#6366f1"
	case NodeBackend:
		return "#f59e0b"
	default:
		return "#cbd5e1"
	}
}

// Edge connects two nodes by id.
type Edge struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Topology is the fixed service diagram.
type Topology struct {
	Nodes []Node `yaml:"nodes"`
	Edges []Edge `yaml:"edges"`
}

// Link is an edge with both endpoints resolved.
type Link struct {
	From Node
	To   Node
}

// DefaultTopology parses the embedded diagram.
func DefaultTopology() (*Topology, error) {
	return ParseTopology(topologyYAML)
}

// ParseTopology parses a topology document and checks that every edge
// references a declared node.
func ParseTopology(data []byte) (*Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse topology: %w", err)
	}
	if _, err := t.Links(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Links resolves every edge to its endpoints.
func (t *Topology) Links() ([]Link, error) {
	byID := make(map[string]Node, len(t.Nodes))
	for _, n := range t.Nodes {
		byID[n.ID] = n
	}
	links := make([]Link, 0, len(t.Edges))
	for _, e := range t.Edges {
		from, ok := byID[e.Source]
		if !ok {
			return nil, fmt.Errorf("topology edge %s->%s: unknown source", e.Source, e.Target)
		}
		to, ok := byID[e.Target]
		if !ok {
			return nil, fmt.Errorf("topology edge %s->%s: unknown target", e.Source, e.Target)
		}
		links = append(links, Link{From: from, To: to})
	}
	return links, nil
}
