package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testImpl = &mcp.Implementation{Name: "cartograph-test", Version: "0.1.0"}

func mcpSession(t *testing.T) (*mcp.ClientSession, string) {
	t.Helper()
	sv, mapsDir := runningService(t)

	srv := mcp.NewServer(testImpl, nil)
	sv.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()

	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session, mapsDir
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text
}

func callToolError(t *testing.T, session *mcp.ClientSession, name string, args any) error {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	// GetError is always nil on clients; rebuild the tool error from the wire result.
	if !result.IsError {
		return nil
	}
	var msg []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			msg = append(msg, tc.Text)
		}
	}
	return errors.New(strings.Join(msg, "\n"))
}

func TestMCP_ListTools(t *testing.T) {
	session, _ := mcpSession(t)
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{
		"cartograph_status":          false,
		"cartograph_list_documents":  false,
		"cartograph_new_document":    false,
		"cartograph_switch_document": false,
		"cartograph_save":            false,
		"cartograph_load":            false,
		"cartograph_recent":          false,
	}
	for _, tool := range res.Tools {
		want[tool.Name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestMCP_Documents(t *testing.T) {
	session, _ := mcpSession(t)

	var created Entry
	if err := json.Unmarshal([]byte(callTool(t, session, "cartograph_new_document", nil)), &created); err != nil {
		t.Fatal(err)
	}

	var docs []Entry
	if err := json.Unmarshal([]byte(callTool(t, session, "cartograph_list_documents", nil)), &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || !docs[1].Active || docs[1].ID != created.ID {
		t.Fatalf("documents: %+v", docs)
	}

	var active Entry
	text := callTool(t, session, "cartograph_switch_document", map[string]any{"id": docs[0].ID})
	if err := json.Unmarshal([]byte(text), &active); err != nil {
		t.Fatal(err)
	}
	if active.ID != docs[0].ID {
		t.Fatalf("switch: %+v", active)
	}

	err := callToolError(t, session, "cartograph_switch_document", map[string]any{"id": "map_unknown"})
	if err == nil || !strings.Contains(err.Error(), "unknown document") {
		t.Fatalf("unknown id: got %v", err)
	}
}

func TestMCP_SaveThenStatus(t *testing.T) {
	session, mapsDir := mcpSession(t)

	var started FileResponse
	if err := json.Unmarshal([]byte(callTool(t, session, "cartograph_save", map[string]any{"name": "crypt"})), &started); err != nil {
		t.Fatal(err)
	}
	if started.Path != filepath.Join(mapsDir, "crypt.json") {
		t.Fatalf("save path: %q", started.Path)
	}

	deadline := time.Now().Add(5 * time.Second)
	var st StatusView
	for {
		if err := json.Unmarshal([]byte(callTool(t, session, "cartograph_status", nil)), &st); err != nil {
			t.Fatal(err)
		}
		if !st.Busy || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if st.Busy || st.SaveError != "" || st.Active.Name != "crypt" {
		t.Fatalf("status: %+v", st)
	}

	if err := callToolError(t, session, "cartograph_load", map[string]any{"name": "../../etc/passwd"}); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestMCP_Recent(t *testing.T) {
	session, _ := mcpSession(t)
	var got struct {
		Maps      []struct{ Path string } `json:"maps"`
		Libraries []string                `json:"libraries"`
	}
	if err := json.Unmarshal([]byte(callTool(t, session, "cartograph_recent", map[string]any{"limit": 1})), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Maps) != 1 || got.Maps[0].Path != "/lib/maps/keep.json" || len(got.Libraries) != 1 {
		t.Fatalf("recent: %+v", got)
	}
}
