package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibzard/hydrant/internal/node"
)

func TestParseOverride(t *testing.T) {
	tests := []struct {
		raw   string
		kind  OverrideKind
		key   string
		value *node.Node
	}{
		{"lr=0.01", OverrideSet, "lr", node.Float(0.01)},
		{"batch_size=64", OverrideSet, "batch_size", node.Int(64)},
		{"db.driver=postgresql", OverrideSet, "db.driver", node.String("postgresql")},
		{`db["user"]=root`, OverrideSet, `db["user"]`, node.String("root")},
		{"debug=true", OverrideSet, "debug", node.Bool(true)},
		{"name='10'", OverrideSet, "name", node.String("10")},
		{"empty=", OverrideSet, "empty", node.String("")},
		{"opt=null", OverrideSet, "opt", node.Null()},
		{"tags=[a, b]", OverrideSet, "tags", node.List(node.String("a"), node.String("b"))},
		{"pool={min: 1}", OverrideSet, "pool", node.Map(node.Entry{Key: "min", Value: node.Int(1)})},
		{"msg=hello: world", OverrideSet, "msg", node.String("hello: world")},
		{"url=http://localhost:8080/x", OverrideSet, "url", node.String("http://localhost:8080/x")},
		{"layers.0.units=32", OverrideSet, "layers.0.units", node.Int(32)},
		{"+db.port=3306", OverrideAdd, "db.port", node.Int(3306)},
		{"++db.port=3306", OverrideForce, "db.port", node.Int(3306)},
		{"~db.password", OverrideDelete, "db.password", nil},
		{"~db.password=", OverrideDelete, "db.password", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			o, err := ParseOverride(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, o.Kind)
			assert.Equal(t, tt.key, o.Key)
			if tt.value == nil {
				assert.Nil(t, o.Value)
				return
			}
			assert.True(t, node.Equal(tt.value, o.Value), "got %s (%s)", o.Value, o.Value.Kind())
		})
	}
}

func TestParseOverrideErrors(t *testing.T) {
	for _, raw := range []string{
		"novalue",
		"=value",
		"+=1",
		"a..b=1",
		"a.b c=1",
		"1abc.x=1",
		"tags=[a, b",
		"~db=mysql",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseOverride(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOverride)
		})
	}
}

func TestOverrideString(t *testing.T) {
	for _, raw := range []string{"a=1", "+a.b=x", "++a=[1, 2]", "~a"} {
		o, err := ParseOverride(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, o.String())
	}
}

func TestIsOverride(t *testing.T) {
	assert.True(t, IsOverride("a=1"))
	assert.True(t, IsOverride("~a"))
	assert.False(t, IsOverride("positional"))
}

func TestApplyOverrides(t *testing.T) {
	base := node.Map(
		node.Entry{Key: "lr", Value: node.Float(0.001)},
		node.Entry{Key: "db", Value: node.Map(
			node.Entry{Key: "driver", Value: node.String("mysql")},
			node.Entry{Key: "password", Value: node.String("secret")},
		)},
	)

	ovs, err := ParseOverrides([]string{"lr=0.1", "lr=0.2", "+db.port=3306", "~db.password", "++db.driver=sqlite", "++cache.size=10"})
	require.NoError(t, err)

	got, err := ApplyOverrides(base, ovs)
	require.NoError(t, err)
	assert.Equal(t, "0.2", mustGet(t, got, "lr").String(), "last override wins")
	assert.Equal(t, "3306", mustGet(t, got, "db.port").String())
	assert.False(t, got.Has("db.password"))
	assert.Equal(t, "sqlite", mustGet(t, got, "db.driver").String())
	assert.Equal(t, "10", mustGet(t, got, "cache.size").String())

	assert.Equal(t, "0.001", mustGet(t, base, "lr").String(), "input tree must not change")
	assert.True(t, base.Has("db.password"))
}

func TestApplyOverridesErrors(t *testing.T) {
	base := node.Map(node.Entry{Key: "db", Value: node.Map(node.Entry{Key: "driver", Value: node.String("mysql")})})

	tests := []struct {
		raw     string
		target  error
		message string
	}{
		{"db.host=x", node.ErrMissingKey, "+db.host=x"},
		{"+db.driver=x", node.ErrKeyExists, "++db.driver=x"},
		{"~db.host", node.ErrMissingKey, "~db.host"},
		{"db.driver.name=x", node.ErrMissingKey, "db.driver.name"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			o, err := ParseOverride(tt.raw)
			require.NoError(t, err)
			_, err = ApplyOverrides(base, []Override{o})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOverride)
			assert.ErrorIs(t, err, tt.target)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestSplitGroupOverrides(t *testing.T) {
	raw, err := Locate(dbTree(), "conf", "config")
	require.NoError(t, err)

	ovs, err := ParseOverrides([]string{"db=groupC", "db.timeout=5", "app_name=x", "db=groupA", "~db"})
	require.NoError(t, err)

	groups, values := SplitGroupOverrides(raw, ovs)
	assert.Equal(t, map[string]string{"db": "groupA"}, groups)
	require.Len(t, values, 3)
	assert.Equal(t, "db.timeout=5", values[0].String())
	assert.Equal(t, "app_name=x", values[1].String())
	assert.Equal(t, "~db", values[2].String())
}
