// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/ocms-builder/internal/util"
)

// Frame types understood by the mapper. Anything else is skipped with its subtree.
const (
	FrameTypeFrame = "frame"
	FrameTypeGroup = "group"
	FrameTypeText  = "text"
	FrameTypeImage = "image"
)

// Tree format constants.
const (
	TreeVersion  = "ai-import-1"
	RootNodeID   = "root"
	ResultSource = "figma"

	maxFrames     = 2000
	maxFrameDepth = 32
)

var textTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "span": true,
}

// Node is one entry of a builder component tree.
type Node struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Component string         `json:"component"`
	Props     map[string]any `json:"props"`
	Children  []string       `json:"children"`
	Styles    map[string]any `json:"styles,omitempty"`
}

// Tree is a flat node map with a designated root.
type Tree struct {
	Version string          `json:"version"`
	Root    string          `json:"root"`
	Nodes   map[string]Node `json:"nodes"`
}

// Asset is an external file referenced by the tree.
type Asset struct {
	NodeID string `json:"node_id"`
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
}

// Meta describes where a result came from.
type Meta struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

// Result is the output stored on a finished import job.
type Result struct {
	Tree   Tree    `json:"tree"`
	Assets []Asset `json:"assets"`
	Meta   Meta    `json:"meta"`
}

// extractFrames checks the document's shape and returns its top-level frames.
func extractFrames(doc *Document) ([]Frame, error) {
	if doc == nil || len(doc.Frames) == 0 {
		return nil, errors.New("design has no frames")
	}

	count := 0
	var walk func(frames []Frame, depth int) error
	walk = func(frames []Frame, depth int) error {
		if depth > maxFrameDepth {
			return fmt.Errorf("design nests deeper than %d levels", maxFrameDepth)
		}
		for _, f := range frames {
			count++
			if count > maxFrames {
				return fmt.Errorf("design has more than %d frames", maxFrames)
			}
			if err := walk(f.Children, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc.Frames, 1); err != nil {
		return nil, err
	}
	return doc.Frames, nil
}

// mapper turns frames into nodes, collecting image assets on the way.
type mapper struct {
	nodes  map[string]Node
	assets []Asset
	seq    int
}

func newMapper() *mapper {
	return &mapper{nodes: map[string]Node{}, assets: []Asset{}}
}

// mapFrames maps frames and returns the ids of the nodes created for them.
func (m *mapper) mapFrames(frames []Frame) []string {
	ids := []string{}
	for _, f := range frames {
		if id, ok := m.mapFrame(f); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *mapper) mapFrame(f Frame) (string, bool) {
	switch strings.ToLower(f.Type) {
	case FrameTypeFrame, FrameTypeGroup:
		id := m.nodeID(f.ID)
		// Reserve the id before children claim theirs.
		m.nodes[id] = Node{}
		m.nodes[id] = Node{
			ID:        id,
			Type:      "layout",
			Component: "layout.container",
			Props:     map[string]any{},
			Children:  m.mapFrames(f.Children),
			Styles: map[string]any{
				"base": map[string]any{
					"maxWidth": "1080px",
					"margin":   map[string]any{"left": "auto", "right": "auto"},
				},
			},
		}
		return id, true

	case FrameTypeText:
		text := util.StripHTML(f.Text)
		if text == "" {
			return "", false
		}
		tag := strings.ToLower(f.Tag)
		if !textTags[tag] {
			tag = "p"
		}
		id := m.nodeID(f.ID)
		m.nodes[id] = Node{
			ID:        id,
			Type:      "component",
			Component: "content.richText",
			Props:     map[string]any{"text": text, "tag": tag},
			Children:  []string{},
		}
		return id, true

	case FrameTypeImage:
		if _, err := util.ValidateRemoteURL(f.Src); err != nil {
			return "", false
		}
		id := m.nodeID(f.ID)
		alt := util.StripHTML(f.Name)
		m.nodes[id] = Node{
			ID:        id,
			Type:      "component",
			Component: "media.image",
			Props:     map[string]any{"src": f.Src, "alt": alt},
			Children:  []string{},
		}
		m.assets = append(m.assets, Asset{NodeID: id, URL: f.Src, Alt: alt})
		return id, true

	default:
		return "", false
	}
}

// nodeID keeps a frame's id when it is usable and unique, otherwise it
// generates one.
func (m *mapper) nodeID(frameID string) string {
	if id := cleanID(frameID); id != "" && id != RootNodeID {
		if _, taken := m.nodes[id]; !taken {
			return id
		}
	}
	for {
		m.seq++
		id := fmt.Sprintf("node-%d", m.seq)
		if _, taken := m.nodes[id]; !taken {
			return id
		}
	}
}

func cleanID(s string) string {
	if len(s) > 64 {
		return ""
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_') {
			return ""
		}
	}
	return s
}

// assemble wraps the mapped top-level nodes in a root section.
func (m *mapper) assemble(children []string, sourceURL string) *Result {
	m.nodes[RootNodeID] = Node{
		ID:        RootNodeID,
		Type:      "layout",
		Component: "layout.section",
		Props:     map[string]any{},
		Children:  children,
		Styles: map[string]any{
			"base": map[string]any{
				"backgroundColor": "#ffffff",
				"padding": map[string]any{
					"top": "64px", "bottom": "96px", "left": "24px", "right": "24px",
				},
			},
		},
	}

	return &Result{
		Tree: Tree{
			Version: TreeVersion,
			Root:    RootNodeID,
			Nodes:   m.nodes,
		},
		Assets: m.assets,
		Meta:   Meta{Source: ResultSource, URL: sourceURL},
	}
}
