package model_test

import (
	"testing"

	"github.com/nikbrunner/bmbox/internal/model"
)

// testTree builds a small tree shaped like a browser's root.
func testTree() *model.Node {
	return model.NewFolder(model.NewFolderParams{
		ID: "0",
		Children: []*model.Node{
			model.NewFolder(model.NewFolderParams{
				ID:    "1",
				Title: "Bookmarks bar",
				Children: []*model.Node{
					model.NewLeaf(model.NewLeafParams{ID: "b1", Title: "Go", URL: "https://go.dev"}),
				},
			}),
			model.NewFolder(model.NewFolderParams{
				ID:    "2",
				Title: "Other bookmarks",
				Children: []*model.Node{
					model.NewFolder(model.NewFolderParams{
						ID:    "f1",
						Title: "Development",
						Children: []*model.Node{
							model.NewLeaf(model.NewLeafParams{ID: "b2", Title: "React", URL: "https://react.dev"}),
						},
					}),
					model.NewLeaf(model.NewLeafParams{ID: "b3", Title: "HN", URL: "https://news.ycombinator.com"}),
				},
			}),
		},
	})
}

func TestNode_IsBar(t *testing.T) {
	tests := []struct {
		name string
		node *model.Node
		want bool
	}{
		{"matched by id", &model.Node{Kind: model.KindFolder, ID: "1", Title: "Toolbar"}, true},
		{"matched by title", &model.Node{Kind: model.KindFolder, ID: "toolbar_____", Title: "Bookmarks bar"}, true},
		{"neither matches", &model.Node{Kind: model.KindFolder, ID: "2", Title: "Other bookmarks"}, false},
		{"leaf with bar id", &model.Node{Kind: model.KindLeaf, ID: "1", Title: "x", URL: "https://x.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.IsBar(); got != tt.want {
				t.Errorf("IsBar() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNode_Bar(t *testing.T) {
	root := testTree()

	bar := root.Bar()
	if bar == nil {
		t.Fatal("expected to find the bar folder")
	}
	if bar.ID != "1" {
		t.Errorf("expected bar id '1', got %q", bar.ID)
	}

	empty := model.NewFolder(model.NewFolderParams{ID: "0"})
	if empty.Bar() != nil {
		t.Error("expected nil bar for empty root")
	}
}

func TestNode_LeavesPreservesOrder(t *testing.T) {
	leaves := testTree().Leaves()

	want := []string{"b1", "b2", "b3"}
	if len(leaves) != len(want) {
		t.Fatalf("expected %d leaves, got %d", len(want), len(leaves))
	}
	for i, id := range want {
		if leaves[i].ID != id {
			t.Errorf("leaf %d: got %q, want %q", i, leaves[i].ID, id)
		}
	}
}

func TestNode_WalkDepth(t *testing.T) {
	depths := map[string]int{}
	testTree().Walk(func(n *model.Node, depth int) bool {
		depths[n.ID] = depth
		return true
	})

	if depths["0"] != 0 || depths["2"] != 1 || depths["f1"] != 2 || depths["b2"] != 3 {
		t.Errorf("unexpected depths: %v", depths)
	}
}

func TestNode_WalkSkipsChildren(t *testing.T) {
	var visited []string
	testTree().Walk(func(n *model.Node, _ int) bool {
		visited = append(visited, n.ID)
		return n.ID != "2"
	})

	for _, id := range visited {
		if id == "f1" || id == "b3" {
			t.Errorf("children of skipped folder were visited: %v", visited)
		}
	}
}

func TestNode_FindAndCount(t *testing.T) {
	root := testTree()

	if n := root.Find("b2"); n == nil || n.Title != "React" {
		t.Errorf("expected to find b2, got %v", n)
	}
	if root.Find("missing") != nil {
		t.Error("expected nil for missing id")
	}

	folders, leaves := root.Count()
	if folders != 3 || leaves != 3 {
		t.Errorf("Count() = (%d, %d), want (3, 3)", folders, leaves)
	}
}

func TestNewFolder_GeneratesID(t *testing.T) {
	f := model.NewFolder(model.NewFolderParams{Title: "Imported"})
	if f.ID == "" {
		t.Error("expected generated id")
	}
	if f.Children == nil {
		t.Error("expected non-nil children slice")
	}
}

func TestDecodePanelState(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"expanded", `{"isCollapsed":false}`, false},
		{"collapsed", `{"isCollapsed":true}`, true},
		{"corrupt", `{isCollapsed`, true},
		{"missing field", `{}`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := model.DecodePanelState(tt.data)
			if got.IsCollapsed != tt.want {
				t.Errorf("DecodePanelState(%q).IsCollapsed = %v, want %v", tt.data, got.IsCollapsed, tt.want)
			}
		})
	}
}

func TestPanelState_Encode(t *testing.T) {
	got := model.PanelState{IsCollapsed: false}.Encode()
	if got != `{"isCollapsed":false}` {
		t.Errorf("Encode() = %q", got)
	}
}
