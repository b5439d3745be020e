package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestStorageFSRoundTrip(t *testing.T) {
	st, err := NewStorageFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)

	content := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}
	require.NoError(t, WriteFile(st, "1700000000000_frame.jpg", bytes.NewReader(content)))

	back, err := ReadFile(st, "1700000000000_frame.jpg")
	require.NoError(t, err)
	require.Equal(t, content, back)

	f, err := st.ReadFile("1700000000000_frame.jpg")
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), f.Size)
	f.Reader.Close()

	require.NoError(t, st.DeleteFile("1700000000000_frame.jpg"))
	_, err = st.ReadFile("1700000000000_frame.jpg")
	require.Error(t, err)
}

func TestStorageFSRejectsTraversal(t *testing.T) {
	st, err := NewStorageFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../evil", "a/../../evil", "/etc/passwd"} {
		_, err := st.WriteFile(name)
		require.ErrorIs(t, err, ErrInvalidName, name)
		_, err = st.ReadFile(name)
		require.ErrorIs(t, err, ErrInvalidName, name)
	}

	w, err := st.WriteFile(strings.Repeat("a", 10) + ".jpg")
	require.NoError(t, err)
	w.Close()
}
