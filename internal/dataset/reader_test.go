package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

func TestRead(t *testing.T) {
	t.Run("header and rows", func(t *testing.T) {
		ds, err := ReadString("a,b\n1,10\n2,20\n3,30\n")
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b"}, ds.Header)
		assert.Equal(t, 3, ds.RowCount())
		assert.Equal(t, []string{"1", "2", "3"}, ds.Column(0))
		assert.Equal(t, "20", ds.Value(1, "b"))
		assert.Zero(t, ds.RaggedRows)
	})

	t.Run("empty lines are skipped", func(t *testing.T) {
		ds, err := ReadString("a,b\n\n1,2\n\n3,4\n , \n")
		require.NoError(t, err)

		assert.Equal(t, 2, ds.RowCount())
	})

	t.Run("ragged rows are padded and truncated", func(t *testing.T) {
		ds, err := ReadString("a,b,c\n1\n1,2,3,4\n")
		require.NoError(t, err)

		require.Equal(t, 2, ds.RowCount())
		assert.Equal(t, []string{"1", "", ""}, []string(ds.Rows[0]))
		assert.Equal(t, []string{"1", "2", "3"}, []string(ds.Rows[1]))
		assert.Equal(t, 2, ds.RaggedRows)
	})

	t.Run("header only is an empty dataset", func(t *testing.T) {
		ds, err := ReadString("a,b\n")
		require.NoError(t, err)

		assert.True(t, ds.IsEmpty())
		assert.Equal(t, 2, ds.ColumnCount())
	})

	t.Run("zero bytes is a parse error", func(t *testing.T) {
		_, err := ReadString("")
		require.Error(t, err)
		assert.True(t, errors.IsParse(err))
	})

	t.Run("unterminated quote is a parse error", func(t *testing.T) {
		_, err := ReadString("a,b\n\"x,1\n")
		require.Error(t, err)
		assert.True(t, errors.IsParse(err))
	})

	t.Run("duplicate and blank header names", func(t *testing.T) {
		ds, err := ReadString("a,,a,a\n1,2,3,4\n")
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "column_2", "a.1", "a.2"}, ds.Header)
	})

	t.Run("custom delimiter and row limit", func(t *testing.T) {
		ds, err := Read(strings.NewReader("a;b\n1;2\n3;4\n5;6\n"), Options{Delimiter: ';', MaxRows: 2})
		require.NoError(t, err)

		assert.Equal(t, 2, ds.RowCount())
		assert.Equal(t, "4", ds.Value(1, "b"))
	})
}

func TestEncodingFallback(t *testing.T) {
	t.Run("windows-1252 input is decoded", func(t *testing.T) {
		// "café" with é encoded as 0xE9
		raw := []byte("name\ncaf\xe9\n")
		sc, err := NewScanner(bytes.NewReader(raw), DefaultOptions())
		require.NoError(t, err)
		require.True(t, sc.Next())

		assert.Equal(t, "café", sc.Row().Get(0))
		assert.True(t, sc.Legacy())
	})

	t.Run("utf-8 byte order mark is stripped", func(t *testing.T) {
		raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,name\n1,x\n")...)
		ds, err := Read(bytes.NewReader(raw), DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, "id", ds.Header[0])
	})
}

func TestScannerIsLazy(t *testing.T) {
	sc, err := NewScanner(strings.NewReader("x\n1\n2\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, sc.Header())

	var got []string
	for sc.Next() {
		got = append(got, sc.Row().Get(0))
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{"1", "2"}, got)
	assert.False(t, sc.Next())
}
