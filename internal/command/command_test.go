package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redhubkv/internal/store"
	"redhubkv/pkg/frame"
)

func arrayOf(strs ...string) frame.Frame {
	items := make([]frame.Frame, len(strs))
	for i, s := range strs {
		items[i] = frame.BulkStringFromText(s)
	}
	return frame.Array(items)
}

func TestFromFrameRequiresArray(t *testing.T) {
	_, err := FromFrame(frame.Integer(1))
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindInvalidCommand, ce.Kind)
}

func TestFromFrameUnknownVerb(t *testing.T) {
	_, err := FromFrame(arrayOf("nope"))
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindInvalidCommand, ce.Kind)
}

func TestFromFrameArityErrors(t *testing.T) {
	_, err := FromFrame(arrayOf("set"))
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindInvalidArgument, ce.Kind)
	assert.Contains(t, err.Error(), "set")
}

func TestFromFrameGet(t *testing.T) {
	cmd, err := FromFrame(arrayOf("GET", "k"))
	require.NoError(t, err)
	assert.Equal(t, Get, cmd.Verb)
	assert.Equal(t, "k", cmd.Key)
}

func TestFromFrameSetCarriesArbitraryValueFrame(t *testing.T) {
	f := frame.Array([]frame.Frame{
		frame.BulkStringFromText("SET"),
		frame.BulkStringFromText("k"),
		frame.Integer(7),
	})
	cmd, err := FromFrame(f)
	require.NoError(t, err)
	assert.Equal(t, Set, cmd.Verb)
	assert.Equal(t, "k", cmd.Key)
	assert.True(t, cmd.Value.Equal(frame.Integer(7)))
}

func TestFromFrameRejectsInvalidUTF8Key(t *testing.T) {
	f := frame.Array([]frame.Frame{
		frame.BulkStringFromText("GET"),
		frame.BulkString([]byte{0xff, 0xfe}),
	})
	_, err := FromFrame(f)
	require.Error(t, err)
}

func TestExecuteSetThenGet(t *testing.T) {
	s := store.New()
	setCmd, err := FromFrame(frame.Array([]frame.Frame{
		frame.BulkStringFromText("SET"),
		frame.BulkStringFromText("k"),
		frame.BulkStringFromText("v"),
	}))
	require.NoError(t, err)
	assert.True(t, setCmd.Execute(s).Equal(frame.SimpleString("OK")))

	getCmd, err := FromFrame(arrayOf("GET", "k"))
	require.NoError(t, err)
	assert.True(t, getCmd.Execute(s).Equal(frame.BulkStringFromText("v")))
}

func TestExecuteGetMiss(t *testing.T) {
	s := store.New()
	cmd, err := FromFrame(arrayOf("GET", "nope"))
	require.NoError(t, err)
	assert.True(t, cmd.Execute(s).Equal(frame.Null()))
}

func TestExecuteHGetAllSortedDeterministic(t *testing.T) {
	s := store.New()
	for _, kv := range [][2]string{{"hello", "world"}, {"hello1", "world1"}} {
		cmd, err := FromFrame(frame.Array([]frame.Frame{
			frame.BulkStringFromText("HSET"),
			frame.BulkStringFromText("map"),
			frame.BulkStringFromText(kv[0]),
			frame.BulkStringFromText(kv[1]),
		}))
		require.NoError(t, err)
		cmd.Execute(s)
	}

	cmd := Command{Verb: HGetAll, Key: "map", Sort: true}
	got := cmd.Execute(s)
	want := frame.Array([]frame.Frame{
		frame.BulkStringFromText("hello"), frame.BulkStringFromText("world"),
		frame.BulkStringFromText("hello1"), frame.BulkStringFromText("world1"),
	})
	assert.True(t, want.Equal(got))
}

func TestExecuteHGetAllMissIsEmptyArray(t *testing.T) {
	s := store.New()
	cmd := Command{Verb: HGetAll, Key: "nope", Sort: true}
	got := cmd.Execute(s)
	assert.True(t, got.Equal(frame.Array(nil)))
}
