package acceptance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivetap/hivetap/pkg/hive"
)

func TestGetHiveInfo(t *testing.T) {
	path := writeHive(t, buildHive(t, 6))

	info, err := hive.GetHiveInfo(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), info.PrimarySequence)
	assert.Equal(t, uint32(1), info.MajorVersion)
	assert.Equal(t, uint32(5), info.MinorVersion)
	assert.Equal(t, "SOFTWARE", info.FileName)
	assert.True(t, info.Consistent())
}

func TestListKeys(t *testing.T) {
	path := writeHive(t, buildHive(t, 2))

	keys, err := hive.ListKeys(path, "", false, 0)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "Services", keys[0].Name)
	assert.Equal(t, 1, keys[0].SubkeyN)

	all, err := hive.ListKeys(path, "", true, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Services", all[0].Path)
	assert.Equal(t, `Services\Tcpip`, all[1].Path)
	assert.Equal(t, 3, all[1].ValueN)

	// maxDepth bounds the recursion.
	shallow, err := hive.ListKeys(path, "", true, 1)
	require.NoError(t, err)
	assert.Len(t, shallow, 1)
}

func TestListValues(t *testing.T) {
	path := writeHive(t, buildHive(t, 2))

	values, err := hive.ListValues(path, `Services\Tcpip`)
	require.NoError(t, err)
	require.Len(t, values, 3)

	byName := map[string]hive.ValueInfo{}
	for _, v := range values {
		byName[v.Name] = v
	}

	start := byName["Start"]
	assert.Equal(t, "REG_DWORD", start.Type)
	assert.Equal(t, uint32(2), start.DWordVal)

	image := byName["ImagePath"]
	assert.Equal(t, "REG_SZ", image.Type)
	assert.Equal(t, `\SystemRoot\drivers\tcpip.sys`, image.StringVal)

	depends := byName["Depends"]
	assert.Equal(t, "REG_MULTI_SZ", depends.Type)
	assert.Equal(t, []string{"NetBT", "AFD"}, depends.StringVals)
}

func TestGetValue(t *testing.T) {
	path := writeHive(t, buildHive(t, 2))

	// Lookup is case-insensitive, like the registry itself.
	v, err := hive.GetValue(path, `services\tcpip`, "imagepath")
	require.NoError(t, err)
	assert.Equal(t, "ImagePath", v.Name)
	assert.Equal(t, `\SystemRoot\drivers\tcpip.sys`, v.StringVal)

	_, err = hive.GetValue(path, `Services\Tcpip`, "NoSuch")
	require.ErrorIs(t, err, hive.ErrNotFound)
}

func TestGetKeyDetail(t *testing.T) {
	path := writeHive(t, buildHive(t, 2))

	detail, err := hive.GetKeyDetail(path, "Services")
	require.NoError(t, err)
	assert.Equal(t, "Services", detail.Name)
	assert.Equal(t, 1, detail.SubkeyN)
	assert.True(t, detail.NameCompressed)
}
