package tool_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/identity"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/schema"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/tool"
)

// recorder is a tool that remembers every context it ran under.
type recorder struct {
	name string
	mu   sync.Mutex
	seen []identity.ExecutionContext
}

func (r *recorder) Definition() tool.Definition {
	return tool.Definition{Name: r.name, Input: schema.Object(schema.Optional("n", schema.Integer()))}
}

func (r *recorder) Execute(_ context.Context, ec identity.ExecutionContext, _ tool.Args) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, ec)
	return map[string]any{"org": ec.OrganizationID()}, nil
}

func noop(name string) tool.Tool {
	return tool.New(tool.Definition{Name: name}, func(context.Context, identity.ExecutionContext, tool.Args) (any, error) {
		return nil, nil
	})
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := tool.NewCatalog(noop("listDeals"), noop("getDeal"), noop("listDeals"))
	assert.ErrorIs(t, err, tool.ErrDuplicateTool)
}

func TestNewCatalog_RejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	cases := map[string]tool.Tool{
		"nil tool":   nil,
		"empty name": noop(""),
		"space":      noop("list deals"),
		"non-object input": tool.New(tool.Definition{Name: "x", Input: schema.String()},
			func(context.Context, identity.ExecutionContext, tool.Args) (any, error) { return nil, nil }),
	}
	for name, tl := range cases {
		_, err := tool.NewCatalog(tl)
		assert.ErrorIs(t, err, tool.ErrInvalidTool, name)
	}
}

func TestCatalog_PreservesOrder(t *testing.T) {
	t.Parallel()

	c, err := tool.NewCatalog(noop("b"), noop("a"), noop("c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, c.Names())
	assert.Equal(t, 3, c.Len())

	reg := c.Bind(identity.NewExecutionContext("org_A", "u1"))
	var names []string
	for _, bt := range reg.Tools() {
		names = append(names, bt.Definition().Name)
		require.NotNil(t, bt.Definition().Input, "missing input defaults to an empty object")
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
}

func TestRegistry_LookupMiss(t *testing.T) {
	t.Parallel()

	c, err := tool.NewCatalog(noop("listDeals"))
	require.NoError(t, err)

	_, ok := c.Bind(identity.NewExecutionContext("org_A", "u1")).Lookup("doesNotExist")
	assert.False(t, ok)
}

func TestRegistry_TenantIsolation(t *testing.T) {
	t.Parallel()

	rec := &recorder{name: "listDeals"}
	c, err := tool.NewCatalog(rec)
	require.NoError(t, err)

	ecA := identity.NewExecutionContext("org_A", "u1")
	ecB := identity.NewExecutionContext("org_B", "u2")
	regA := c.Bind(ecA)
	regB := c.Bind(ecB)

	toolA, ok := regA.Lookup("listDeals")
	require.True(t, ok)
	toolB, ok := regB.Lookup("listDeals")
	require.True(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = toolA.Call(context.Background(), nil) }()
		go func() { defer wg.Done(); _, _ = toolB.Call(context.Background(), nil) }()
	}
	wg.Wait()

	outA, err := toolA.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"org": "org_A"}, outA)

	counts := map[identity.ExecutionContext]int{}
	for _, ec := range rec.seen {
		counts[ec]++
	}
	assert.Equal(t, map[identity.ExecutionContext]int{ecA: 21, ecB: 20}, counts)
	assert.Equal(t, ecA, regA.Context())
	assert.Equal(t, ecB, regB.Context())
}

func TestBoundTool_Validate(t *testing.T) {
	t.Parallel()

	c, err := tool.NewCatalog(&recorder{name: "count"})
	require.NoError(t, err)
	bt, ok := c.Bind(identity.NewExecutionContext("org_A", "u1")).Lookup("count")
	require.True(t, ok)

	assert.NoError(t, bt.Validate(map[string]any{"n": 2.0}))
	var verr *schema.ValidationError
	assert.ErrorAs(t, bt.Validate(map[string]any{"n": "two"}), &verr)
}

func TestFailf(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("boom")
	err := tool.Failf("deal %s: %w", "d1", sentinel)

	var te *tool.ToolExecutionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "deal d1: boom", te.Error())
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, tool.IsExecutionError(err))
	assert.False(t, tool.IsExecutionError(sentinel))

	plain := tool.Failf("no wrap")
	assert.Equal(t, "no wrap", plain.Error())
}

func TestArgs_Accessors(t *testing.T) {
	t.Parallel()

	args := tool.Args{"s": "x", "f": 2.5, "i": 3.0, "b": true, "null": nil}

	assert.Equal(t, "x", args.String("s"))
	assert.Equal(t, "", args.String("missing"))
	assert.Nil(t, args.OptString("null"))
	assert.True(t, args.Has("null"))
	assert.Equal(t, 2.5, *args.Float("f"))
	assert.Equal(t, 3, *args.Int("i"))
	assert.Nil(t, args.Int("missing"))
	assert.Equal(t, 7, args.IntOr("missing", 7))
	assert.True(t, args.Bool("b"))
	assert.False(t, args.Bool("s"))
}
