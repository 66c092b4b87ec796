// Package conversation records player messages and agent replies as a forest
// of reply trees rooted at player messages.
package conversation

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrParentNotFound = errors.New("parent message not found")
	ErrDuplicateNode  = errors.New("message already recorded")
)

type Sender string

const (
	SenderPlayer Sender = "player"
	SenderAgent  Sender = "agent"
)

// DisplayPosition places a node for tree rendering: X is the depth, Y spreads
// siblings around their parent.
type DisplayPosition struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Sender    Sender          `json:"sender"`
	AgentID   string          `json:"agentId,omitempty"`
	AgentName string          `json:"agentName,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	ParentIDs []string        `json:"parentIds"`
	ChildIDs  []string        `json:"childIds"`
	Depth     int             `json:"depth"`
	Position  DisplayPosition `json:"position"`

	seq uint64
}

func (n *Node) clone() Node {
	c := *n
	c.ParentIDs = append([]string{}, n.ParentIDs...)
	c.ChildIDs = append([]string{}, n.ChildIDs...)
	return c
}

// Response is an agent reply to attach under a parent message.
type Response struct {
	ID        string
	Content   string
	AgentID   string
	AgentName string
}

type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type Stats struct {
	TotalMessages  int `json:"totalMessages"`
	PlayerMessages int `json:"playerMessages"`
	AgentMessages  int `json:"agentMessages"`
	RootCount      int `json:"activeThreads"`
	MaxDepth       int `json:"maxDepth"`
}

// Snapshot is a copy of the whole structure.
type Snapshot struct {
	Nodes  map[string]Node `json:"nodes"`
	Roots  []string        `json:"roots"`
	Leaves []string        `json:"leaves"`
}

// DAG is safe for concurrent use. Nodes are only ever appended; the one
// in-place change is a parent gaining children.
type DAG struct {
	mu     sync.RWMutex
	nodes  map[string]*Node
	roots  []string
	leaves []string
	seq    uint64
	now    func() time.Time
}

type Option func(*DAG)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *DAG) { d.now = now }
}

func New(opts ...Option) *DAG {
	d := &DAG{nodes: make(map[string]*Node), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddRoot records a player message.
func (d *DAG) AddRoot(id, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.nodes[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.seq++
	d.nodes[id] = &Node{
		ID:        id,
		Content:   content,
		Sender:    SenderPlayer,
		Timestamp: d.now(),
		ParentIDs: []string{},
		ChildIDs:  []string{},
		Position:  DisplayPosition{X: 0, Y: float64(len(d.roots))},
		seq:       d.seq,
	}
	d.roots = append(d.roots, id)
	d.leaves = append(d.leaves, id)
	return nil
}

// AddResponses attaches replies under parentID in the given order. Nothing
// changes if the parent is missing or any id is already taken.
func (d *DAG) AddResponses(parentID string, responses []Response) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent, ok := d.nodes[parentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrParentNotFound, parentID)
	}
	batch := make(map[string]struct{}, len(responses))
	for _, r := range responses {
		if _, ok := d.nodes[r.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, r.ID)
		}
		if _, ok := batch[r.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, r.ID)
		}
		batch[r.ID] = struct{}{}
	}

	d.removeLeaf(parentID)
	n := len(responses)
	now := d.now()
	for i, r := range responses {
		d.seq++
		d.nodes[r.ID] = &Node{
			ID:        r.ID,
			Content:   r.Content,
			Sender:    SenderAgent,
			AgentID:   r.AgentID,
			AgentName: r.AgentName,
			Timestamp: now,
			ParentIDs: []string{parentID},
			ChildIDs:  []string{},
			Depth:     parent.Depth + 1,
			Position: DisplayPosition{
				X: parent.Depth + 1,
				Y: parent.Position.Y + float64(i) - float64(n-1)/2,
			},
			seq: d.seq,
		}
		parent.ChildIDs = append(parent.ChildIDs, r.ID)
		d.leaves = append(d.leaves, r.ID)
	}
	return nil
}

func (d *DAG) removeLeaf(id string) {
	for i, leaf := range d.leaves {
		if leaf == id {
			d.leaves = append(d.leaves[:i], d.leaves[i+1:]...)
			return
		}
	}
}

// Get returns a copy of the node.
func (d *DAG) Get(id string) (Node, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// ThreadPath returns the nodes from the root down to id, following the first
// parent at each step. Unknown ids give an empty path.
func (d *DAG) ThreadPath(id string) []Node {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var path []Node
	for cur, ok := d.nodes[id]; ok; {
		path = append(path, cur.clone())
		if len(cur.ParentIDs) == 0 {
			break
		}
		cur, ok = d.nodes[cur.ParentIDs[0]]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ResponsesOf returns the direct replies to id in insertion order.
func (d *DAG) ResponsesOf(id string) []Node {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n, ok := d.nodes[id]
	if !ok {
		return nil
	}
	out := make([]Node, 0, len(n.ChildIDs))
	for _, c := range n.ChildIDs {
		if child, ok := d.nodes[c]; ok {
			out = append(out, child.clone())
		}
	}
	return out
}

// Chronological returns every node ordered by timestamp, then insertion.
func (d *DAG) Chronological() []Node {
	d.mu.RLock()
	out := make([]Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		out = append(out, n.clone())
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Tree returns all nodes in insertion order with parent to child edges.
func (d *DAG) Tree() Tree {
	d.mu.RLock()
	defer d.mu.RUnlock()

	nodes := make([]*Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].seq < nodes[j].seq })

	t := Tree{Nodes: make([]Node, 0, len(nodes)), Edges: []Edge{}}
	for _, n := range nodes {
		t.Nodes = append(t.Nodes, n.clone())
		for _, c := range n.ChildIDs {
			t.Edges = append(t.Edges, Edge{From: n.ID, To: c})
		}
	}
	return t
}

func (d *DAG) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Stats{TotalMessages: len(d.nodes), RootCount: len(d.roots)}
	for _, n := range d.nodes {
		switch n.Sender {
		case SenderPlayer:
			s.PlayerMessages++
		case SenderAgent:
			s.AgentMessages++
		}
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
	}
	return s
}

func (d *DAG) Roots() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string{}, d.roots...)
}

func (d *DAG) Leaves() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string{}, d.leaves...)
}

func (d *DAG) Clear() {
	d.mu.Lock()
	d.nodes = make(map[string]*Node)
	d.roots = nil
	d.leaves = nil
	d.mu.Unlock()
}

func (d *DAG) Export() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Snapshot{
		Nodes:  make(map[string]Node, len(d.nodes)),
		Roots:  append([]string{}, d.roots...),
		Leaves: append([]string{}, d.leaves...),
	}
	for id, n := range d.nodes {
		s.Nodes[id] = n.clone()
	}
	return s
}
