package storage

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisk_SaveOpenRemove(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.Save("abc.jpg", []byte("image bytes")))

	rc, err := d.Open("abc.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, []byte("image bytes"), data)

	require.NoError(t, d.Remove("abc.jpg"))
	_, err = d.Open("abc.jpg")
	assert.Error(t, err)
}

func TestDisk_RemoveMissingIsNoop(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, d.Remove("never-existed.png"))
}

func TestDisk_RejectsTraversal(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, d.Save("../escape.jpg", []byte("x")))
	assert.Error(t, d.Save("a/b.jpg", []byte("x")))
	_, err = d.Open("..")
	assert.Error(t, err)
}
