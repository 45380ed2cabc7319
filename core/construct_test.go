package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv(EnvOutdir, "")
	t.Setenv(EnvContext, "")
	app, err := NewApp(nil)
	require.NoError(t, err)
	return app
}

func newTestStack(t *testing.T) (*App, *Stack) {
	t.Helper()
	app := newTestApp(t)
	stack, err := NewStack(app, "Platform", nil)
	require.NoError(t, err)
	return app, stack
}

func TestNewNode(t *testing.T) {
	app := newTestApp(t)

	parent, err := NewNode(app, "Parent")
	require.NoError(t, err)
	child, err := NewNode(parent, "Child")
	require.NoError(t, err)

	assert.Equal(t, "Parent/Child", child.Path())
	assert.Equal(t, []string{"Parent", "Child"}, child.PathComponents())
	assert.Same(t, parent, child.Scope())
	assert.Same(t, child, parent.TryFindChild("Child"))
	assert.Same(t, app, child.App())
	assert.Len(t, app.Node().FindAll(), 3)
}

func TestNewNode_Errors(t *testing.T) {
	app := newTestApp(t)
	parent, err := NewNode(app, "Parent")
	require.NoError(t, err)
	_, err = NewNode(parent, "Child")
	require.NoError(t, err)

	tests := []struct {
		name    string
		scope   Construct
		id      string
		wantErr string
	}{
		{"duplicate", parent, "Child", "There is already a Construct with name 'Child' in Parent"},
		{"duplicate at root", app, "Parent", "There is already a Construct with name 'Parent' in App"},
		{"empty", parent, "", "must not be empty"},
		{"separator", parent, "a/b", `must not contain "/"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNode(tt.scope, tt.id)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNode_Addr(t *testing.T) {
	app := newTestApp(t)
	stack, err := NewNode(app, "Stack")
	require.NoError(t, err)
	cluster, err := NewNode(stack, "Cluster")
	require.NoError(t, err)

	def, err := NewNode(stack, "Default")
	require.NoError(t, err)
	wrapped, err := NewNode(def, "Cluster")
	require.NoError(t, err)

	assert.Equal(t, "c8b8b64b19fce4602e6012e3dc17071c4c47db959f", cluster.Addr())
	assert.Equal(t, cluster.Addr(), wrapped.Addr())
	assert.Len(t, cluster.Addr(), 42)
}

func TestNode_Children_InsertionOrder(t *testing.T) {
	app := newTestApp(t)
	for _, id := range []string{"Zeta", "Alpha", "Mid"} {
		_, err := NewNode(app, id)
		require.NoError(t, err)
	}
	var ids []string
	for _, c := range app.Node().Children() {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, ids)
}

func TestNode_Validate(t *testing.T) {
	app := newTestApp(t)
	a, err := NewNode(app, "A")
	require.NoError(t, err)
	b, err := NewNode(a, "B")
	require.NoError(t, err)

	a.AddValidation(func() error { return nil })
	b.AddValidation(func() error { return assert.AnError })

	err = app.Node().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[A/B]")
}

func TestNode_UniqueChildIDs_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		app, err := NewApp(nil)
		if err != nil {
			t.Fatal(err)
		}
		ids := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z][A-Za-z0-9]{0,8}`), 1, 20).Draw(t, "ids")
		seen := map[string]bool{}
		for _, id := range ids {
			_, err := NewNode(app, id)
			if seen[id] && err == nil {
				t.Fatalf("duplicate id %q accepted", id)
			}
			if !seen[id] && err != nil {
				t.Fatalf("fresh id %q rejected: %v", id, err)
			}
			seen[id] = true
		}
		if len(app.Node().Children()) != len(seen) {
			t.Fatalf("got %d children, want %d", len(app.Node().Children()), len(seen))
		}
	})
}
