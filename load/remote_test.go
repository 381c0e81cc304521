package load

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectScheme(t *testing.T) {
	tests := []struct {
		path     string
		expected urlScheme
	}{
		{"/path/to/file.csv", schemeLocal},
		{"./relative/path.csv", schemeLocal},
		{"file:///path/to/file.csv", schemeFile},
		{"s3://bucket/key.csv", schemeS3},
		{"S3://bucket/key.csv", schemeS3},
		{"http://example.com/file.csv", schemeHTTP},
		{"https://example.com/file.csv", schemeHTTPS},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, detectScheme(tt.path), tt.path)
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://tables/asme/data.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "tables", bucket)
	assert.Equal(t, "asme/data.xlsx", key)

	for _, bad := range []string{"s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, err := parseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestLocalPath(t *testing.T) {
	assert.Equal(t, "/data/Table-1A.csv", LocalPath("file:///data/Table-1A.csv"))
	assert.Equal(t, "data.xlsx", LocalPath("data.xlsx"))
	assert.True(t, IsLocal("file:///x"))
	assert.False(t, IsLocal("https://example.com/x"))
}

func TestOpenReaderLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))

	for _, p := range []string{path, "file://" + path} {
		reader, err := OpenReader(context.Background(), p, nil)
		require.NoError(t, err)
		data, err := io.ReadAll(reader)
		reader.Close()
		require.NoError(t, err)
		assert.Equal(t, "a,b\n", string(data))
	}
}

func TestOpenReaderHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Table-1A.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(ferrousCSV))
	}))
	defer server.Close()

	loader := &CSVLoader{TablePath: server.URL + "/Table-1A.csv"}
	table, err := loader.Load(context.Background(), "Table-1A")
	require.NoError(t, err)
	assert.Len(t, table.Records, 4)

	_, err = OpenReader(context.Background(), server.URL+"/missing.csv", nil)
	assert.Error(t, err)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestOpenWriter(t *testing.T) {
	var buf bytes.Buffer
	original := osCreate
	osCreate = func(path string) (io.WriteCloser, error) {
		assert.Equal(t, "/exports/curve.arrow", path)
		return nopWriteCloser{&buf}, nil
	}
	defer func() { osCreate = original }()

	writer, err := OpenWriter(context.Background(), "file:///exports/curve.arrow", nil)
	require.NoError(t, err)
	_, err = writer.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	assert.Equal(t, "data", buf.String())

	_, err = OpenWriter(context.Background(), "https://example.com/curve.arrow", nil)
	assert.Error(t, err)
}
