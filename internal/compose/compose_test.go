package compose

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibzard/hydrant/internal/node"
)

func file(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }

func dbTree() fstest.MapFS {
	return fstest.MapFS{
		"conf/config.yaml":   file("db: groupA\napp_name: demo\n"),
		"conf/db/groupA.yaml": file("driver: mysql\npassword: secret\ntimeout: 10\nuser: admin\n"),
		"conf/db/groupC.json": file(`{"driver": "postgresql", "password": "drowssap", "timeout": 20, "user": "postgres_user"}`),
	}
}

func TestLocate(t *testing.T) {
	fsys := fstest.MapFS{
		"conf/config.toml":  file("a = 1\n"),
		"conf/other.yml":    file("b: 2\n"),
		"conf/both.yaml":    file("from: yaml\n"),
		"conf/both.json":    file(`{"from": "json"}`),
		"conf/explicit.hcl": file("c = 3\n"),
	}

	tests := []struct {
		name   string
		want   string
		format Format
	}{
		{"config", "conf/config.toml", FormatTOML},
		{"other", "conf/other.yml", FormatYAML},
		{"both", "conf/both.yaml", FormatYAML},
		{"both.json", "conf/both.json", FormatJSON},
		{"explicit", "conf/explicit.hcl", FormatHCL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Locate(fsys, "conf", tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, raw.Path)
			assert.Equal(t, tt.format, raw.Format)
			assert.Equal(t, "conf", raw.Dir)
			assert.NotEmpty(t, raw.Text)
		})
	}
}

func TestLocateNotFound(t *testing.T) {
	_, err := Locate(dbTree(), "conf", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.Contains(t, err.Error(), "conf/missing.{yaml,yml,toml,json,hcl}")

	_, err = Locate(dbTree(), "nowhere", "config")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestGroupsAndOptions(t *testing.T) {
	raw, err := Locate(dbTree(), "conf", "config")
	require.NoError(t, err)

	groups, err := raw.Groups()
	require.NoError(t, err)
	assert.Equal(t, []string{"db"}, groups)

	opts, err := raw.Options("db")
	require.NoError(t, err)
	assert.Equal(t, []string{"groupA", "groupC"}, opts)

	assert.True(t, raw.IsGroup("db"))
	assert.False(t, raw.IsGroup("app_name"))
	assert.False(t, raw.IsGroup("../conf"))

	_, err = raw.Options("cache")
	assert.ErrorIs(t, err, ErrConfigGroupNotFound)
}

func TestMergeSplicesSelectedGroup(t *testing.T) {
	raw, err := Locate(dbTree(), "conf", "config")
	require.NoError(t, err)

	cfg, err := Merge(raw, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"db", "app_name"}, cfg.Keys())
	driver, err := cfg.GetString("db.driver")
	require.NoError(t, err)
	assert.Equal(t, "mysql", driver)
	user, err := cfg.GetString(`db["user"]`)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
	timeout, err := cfg.GetInt("db.timeout")
	require.NoError(t, err)
	assert.EqualValues(t, 10, timeout)
	assert.Equal(t, []string{"driver", "password", "timeout", "user"}, mustGet(t, cfg, "db").Keys())
}

func TestMergeGroupSelection(t *testing.T) {
	raw, err := Locate(dbTree(), "conf", "config")
	require.NoError(t, err)

	cfg, err := Merge(raw, map[string]string{"db": "groupC"})
	require.NoError(t, err)
	assert.Equal(t, "postgresql", mustGet(t, cfg, "db.driver").String())
	assert.Equal(t, "20", mustGet(t, cfg, "db.timeout").String())

	_, err = Merge(raw, map[string]string{"db": "groupB"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigGroupNotFound)
	assert.Contains(t, err.Error(), "db/groupB")
	assert.Contains(t, err.Error(), "groupA, groupC")

	_, err = Merge(raw, map[string]string{"cache": "redis"})
	assert.ErrorIs(t, err, ErrConfigGroupNotFound)
}

func TestMergeDefaultsList(t *testing.T) {
	fsys := fstest.MapFS{
		"conf/config.yaml": file(`
defaults:
  - model: small
  - optim: null
  - _self_
seed: 7
model:
  dropout: 0.5
`),
		"conf/model/small.toml": file("num_layers = 4\ndropout = 0.1\nname = \"small\"\n"),
		"conf/optim/sgd.yaml":   file("lr: 0.1\n"),
		"conf/db/mysql.yaml":    file("driver: mysql\n"),
	}
	raw, err := Locate(fsys, "conf", "config")
	require.NoError(t, err)

	cfg, err := Merge(raw, nil)
	require.NoError(t, err)
	assert.False(t, cfg.Has("defaults"))
	assert.False(t, cfg.Has("optim"))
	assert.Equal(t, "4", mustGet(t, cfg, "model.num_layers").String())
	assert.Equal(t, "0.5", mustGet(t, cfg, "model.dropout").String(), "root mapping wins over the group")
	assert.Equal(t, []string{"num_layers", "dropout", "name"}, mustGet(t, cfg, "model").Keys())

	withCLI, err := Merge(raw, map[string]string{"optim": "sgd", "db": "mysql"})
	require.NoError(t, err)
	assert.Equal(t, "0.1", mustGet(t, withCLI, "optim.lr").String())
	assert.Equal(t, []string{"optim", "seed", "model", "db"}, withCLI.Keys())
}

func TestMergeStringWithoutGroupIsLiteral(t *testing.T) {
	fsys := fstest.MapFS{
		"conf/config.yaml": file("name: mysql\n"),
	}
	raw, err := Locate(fsys, "conf", "config")
	require.NoError(t, err)
	cfg, err := Merge(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "mysql", mustGet(t, cfg, "name").String())
}

func TestMergeMalformedGroup(t *testing.T) {
	fsys := fstest.MapFS{
		"conf/config.yaml":    file("db: broken\n"),
		"conf/db/broken.yaml": file("driver: [mysql\n"),
	}
	raw, err := Locate(fsys, "conf", "config")
	require.NoError(t, err)

	_, err = Merge(raw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigParse)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "conf/db/broken.yaml", pe.Path)
}

func TestComposeOverridesWinOverFiles(t *testing.T) {
	ovs, err := ParseOverrides([]string{"db.timeout=30", "db=groupC", "db.user=root", "+db.port=5432"})
	require.NoError(t, err)

	cfg, err := Compose(dbTree(), "conf", "config", ovs)
	require.NoError(t, err)

	want := map[string]any{
		"db": map[string]any{
			"driver":   "postgresql",
			"password": "drowssap",
			"timeout":  int64(30),
			"user":     "root",
			"port":     int64(5432),
		},
		"app_name": "demo",
	}
	if diff := cmp.Diff(want, cfg.Interface()); diff != "" {
		t.Fatalf("composed config mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeMissingGroupOption(t *testing.T) {
	ovs, err := ParseOverrides([]string{"db=groupB"})
	require.NoError(t, err)
	_, err = Compose(dbTree(), "conf", "config", ovs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigGroupNotFound)
}

func TestComposeRejectsUnknownKey(t *testing.T) {
	ovs, err := ParseOverrides([]string{"db.host=localhost"})
	require.NoError(t, err)
	_, err = Compose(dbTree(), "conf", "config", ovs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOverride)
	assert.ErrorIs(t, err, node.ErrMissingKey)
	assert.Contains(t, err.Error(), "+db.host=localhost")
}

func TestComposeGroupAdd(t *testing.T) {
	unselected := func() fstest.MapFS {
		fsys := dbTree()
		fsys["conf/config.yaml"] = file("app_name: demo\n")
		return fsys
	}
	disabled := func() fstest.MapFS {
		fsys := dbTree()
		fsys["conf/config.yaml"] = file("defaults:\n  - db: null\napp_name: demo\n")
		return fsys
	}

	tests := []struct {
		name    string
		fsys    fstest.MapFS
		args    []string
		driver  string
		message string
	}{
		{"force reselects", dbTree(), []string{"++db=groupC"}, "postgresql", ""},
		{"add to unselected group", unselected(), []string{"+db=groupC"}, "postgresql", ""},
		{"add to disabled default", disabled(), []string{"+db=groupC"}, "postgresql", ""},
		{"add over root selection", dbTree(), []string{"+db=groupC"}, "", "use db=groupC or ++db=groupC"},
		{"add after override selection", unselected(), []string{"db=groupA", "+db=groupC"}, "", "group already selected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ovs, err := ParseOverrides(tt.args)
			require.NoError(t, err)
			cfg, err := Compose(tt.fsys, "conf", "config", ovs)
			if tt.message != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidOverride)
				assert.Contains(t, err.Error(), tt.message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, mustGet(t, cfg, "db.driver").String())
		})
	}
}

func TestComposeSchemaKeepsLargeIntegers(t *testing.T) {
	fsys := dbTree()
	fsys["conf/config.schema.json"] = file(`{
  "type": "object",
  "properties": {
    "db": {
      "type": "object",
      "properties": {
        "timeout": {"type": "integer", "maximum": 9007199254740992}
      }
    }
  }
}`)

	ovs, err := ParseOverrides([]string{"db.timeout=9007199254740992"})
	require.NoError(t, err)
	_, err = Compose(fsys, "conf", "config", ovs)
	require.NoError(t, err)

	ovs, err = ParseOverrides([]string{"db.timeout=9007199254740993"})
	require.NoError(t, err)
	_, err = Compose(fsys, "conf", "config", ovs)
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestComposeSchema(t *testing.T) {
	fsys := dbTree()
	fsys["conf/config.schema.json"] = file(`{
  "type": "object",
  "required": ["db"],
  "properties": {
    "db": {
      "type": "object",
      "properties": {
        "timeout": {"type": "integer", "minimum": 1}
      }
    }
  }
}`)

	_, err := Compose(fsys, "conf", "config", nil)
	require.NoError(t, err)

	ovs, err := ParseOverrides([]string{"db.timeout=0"})
	require.NoError(t, err)
	_, err = Compose(fsys, "conf", "config", ovs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "db.timeout", ve.Path)
}

func TestPointerToPath(t *testing.T) {
	assert.Equal(t, "", pointerToPath(""))
	assert.Equal(t, "db.timeout", pointerToPath("/db/timeout"))
	assert.Equal(t, "layers[0].units", pointerToPath("#/layers/0/units"))
	assert.Equal(t, "a/b.c", pointerToPath("/a~1b/c"))
	assert.Equal(t, `["x.y"].z`, pointerToPath("/x.y/z"))
}

func mustGet(t *testing.T, n *node.Node, path string) *node.Node {
	t.Helper()
	v, err := n.Get(path)
	require.NoError(t, err)
	return v
}
