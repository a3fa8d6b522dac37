package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		want Location
	}{
		{"a", Name{Name: "a"}},
		{"a.b", AttributeAccess{Target: Name{Name: "a"}, Name: "b"}},
		{"a[0]", IndexAccess{Target: Name{Name: "a"}, Index: Const{Value: 0}}},
		{"a[b]", IndexAccess{Target: Name{Name: "a"}, Index: Name{Name: "b"}}},
		{
			"a.b[c.d]",
			IndexAccess{
				Target: AttributeAccess{Target: Name{Name: "a"}, Name: "b"},
				Index:  AttributeAccess{Target: Name{Name: "c"}, Name: "d"},
			},
		},
		{
			"a[b[0]].c",
			AttributeAccess{
				Target: IndexAccess{
					Target: Name{Name: "a"},
					Index:  IndexAccess{Target: Name{Name: "b"}, Index: Const{Value: 0}},
				},
				Name: "c",
			},
		},
		{" a . b [ 0 ] ", IndexAccess{Target: AttributeAccess{Target: Name{Name: "a"}, Name: "b"}, Index: Const{Value: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Parse(tt.src)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s", got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"0abc",
		"a + b",
		"f(x)",
		"a[-1]",
		"'str'",
		"a[1.5]",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			assert.Error(t, err)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, src := range []string{"a", "a.b", "a[0]", "a[b]", "a.b[c].d", "a[b[0]]"} {
		t.Run(src, func(t *testing.T) {
			loc, err := Parse(src)
			require.NoError(t, err)
			again, err := Parse(loc.String())
			require.NoError(t, err)
			assert.True(t, loc.Equal(again))
		})
	}
}

func TestEvaluate(t *testing.T) {
	ctx := map[string]any{
		"a": map[string]any{
			"b": []any{"x", "y"},
		},
		"i": 1,
		"k": "b",
	}

	tests := []struct {
		src  string
		want any
	}{
		{"a", ctx["a"]},
		{"a.b", []any{"x", "y"}},
		{"a.b[0]", "x"},
		{"a.b[i]", "y"},
		{"a[k][0]", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := MustParse(tt.src).Evaluate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateUndefined(t *testing.T) {
	ctx := map[string]any{
		"a": map[string]any{
			"b": []any{map[string]any{"w": 1}},
		},
		"i": 0,
	}

	// The reported location is the deepest defined prefix plus the first
	// missing step, with dynamic indexes resolved.
	tests := []struct {
		src  string
		want string
	}{
		{"missing", "missing"},
		{"a.c", "a.c"},
		{"a.c.d", "a.c"},
		{"a.b[2]", "a.b[2]"},
		{"a.b[j]", "j"},
		{"a.b[i].x", "a.b[0].x"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := MustParse(tt.src).Evaluate(ctx)
			u := Undefined(err)
			require.NotNil(t, u, "expected undefined error, got %v", err)
			assert.Equal(t, tt.want, u.Location.String())
		})
	}
}

func TestEvaluateTypeErrors(t *testing.T) {
	ctx := map[string]any{"s": "text", "n": 3}

	for _, src := range []string{"s.x", "s[0]", "n[0]"} {
		t.Run(src, func(t *testing.T) {
			_, err := MustParse(src).Evaluate(ctx)
			require.Error(t, err)
			assert.Nil(t, Undefined(err))
		})
	}
}

func TestAssign(t *testing.T) {
	t.Run("root name creates key", func(t *testing.T) {
		ctx := map[string]any{}
		require.NoError(t, MustParse("a").Assign(1, ctx))
		assert.Equal(t, map[string]any{"a": 1}, ctx)
	})

	t.Run("nested map", func(t *testing.T) {
		ctx := map[string]any{"a": map[string]any{}}
		require.NoError(t, MustParse("a.b").Assign("v", ctx))
		assert.Equal(t, "v", ctx["a"].(map[string]any)["b"])
	})

	t.Run("list index in range", func(t *testing.T) {
		ctx := map[string]any{"a": []any{1, 2}}
		require.NoError(t, MustParse("a[1]").Assign(9, ctx))
		assert.Equal(t, []any{1, 9}, ctx["a"])
	})

	t.Run("list index out of range", func(t *testing.T) {
		ctx := map[string]any{"a": []any{1}}
		assert.Error(t, MustParse("a[1]").Assign(9, ctx))
	})

	t.Run("missing container", func(t *testing.T) {
		ctx := map[string]any{}
		err := MustParse("a.b").Assign("v", ctx)
		require.Error(t, err)
		assert.NotNil(t, Undefined(err))
	})

	t.Run("dynamic index", func(t *testing.T) {
		ctx := map[string]any{"a": []any{1, 2}, "i": 0}
		require.NoError(t, MustParse("a[i]").Assign(7, ctx))
		assert.Equal(t, []any{7, 2}, ctx["a"])
	})

	t.Run("const target rejected", func(t *testing.T) {
		assert.Error(t, Const{Value: 1}.Assign("v", map[string]any{}))
	})
}

func TestEvaluateIndexes(t *testing.T) {
	ctx := map[string]any{"i": 2, "k": "x"}

	t.Run("rewrites dynamic indexes", func(t *testing.T) {
		got, err := EvaluateIndexes(MustParse("a.b[i]"), ctx)
		require.NoError(t, err)
		want := IndexAccess{
			Target: AttributeAccess{Target: Name{Name: "a"}, Name: "b"},
			Index:  Const{Value: 2},
		}
		assert.True(t, got.Equal(want), "got %s", got)
	})

	t.Run("string index", func(t *testing.T) {
		got, err := EvaluateIndexes(MustParse("a[k]"), ctx)
		require.NoError(t, err)
		assert.True(t, got.Equal(IndexAccess{Target: Name{Name: "a"}, Index: Const{Value: "x"}}))
	})

	t.Run("undefined index propagates", func(t *testing.T) {
		_, err := EvaluateIndexes(MustParse("a[j]"), ctx)
		u := Undefined(err)
		require.NotNil(t, u)
		assert.Equal(t, "j", u.Location.String())
	})

	t.Run("target names untouched", func(t *testing.T) {
		got, err := EvaluateIndexes(MustParse("a.b"), ctx)
		require.NoError(t, err)
		assert.True(t, got.Equal(MustParse("a.b")))
	})
}

func TestPrefixes(t *testing.T) {
	prefixes := Prefixes(MustParse("a.b[0]"))
	require.Len(t, prefixes, 3)
	assert.Equal(t, "a", prefixes[0].String())
	assert.Equal(t, "a.b", prefixes[1].String())
	assert.Equal(t, "a.b[0]", prefixes[2].String())
}
