package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
	"github.com/goliatone/go-formcatalog/pkg/dataset"
)

func sampleTable(name string) dataset.Table {
	return dataset.Table{
		Name:    name,
		Columns: []string{dataset.ColumnSubject, dataset.ColumnForm, "age", "sex_1"},
		Rows: [][]any{
			{"s1", "1", json.Number("42"), true},
			{"s2", "1", nil, false},
		},
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{1.5, "1.5"},
		{json.Number("12"), "12"},
		{true, "true"},
		{7, "7"},
		{map[string]any{"a": 1}, `{"a":1}`},
		{[]any{"a", "b"}, `["a","b"]`},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatValue(tc.in))
	}
}

func TestCSVWriter(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out", "obs.csv")
	w, err := New(DriverCSV)
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), sampleTable("merged"), dest))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"subjectId", "formCode", "age", "sex_1"},
		{"s1", "1", "42", "true"},
		{"s2", "1", "", "false"},
	}, records)
}

func TestCSVWriter_RejectsRaggedTable(t *testing.T) {
	table := dataset.Table{Name: "bad", Columns: []string{"a", "b"}, Rows: [][]any{{"only"}}}
	err := EncodeCSV(io.Discard, table)
	require.Error(t, err)
}

func TestWriteAll_PerTableFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(DriverJSON)
	require.NoError(t, err)

	tables := []dataset.Table{sampleTable("form_1"), sampleTable("form_2")}
	require.NoError(t, WriteAll(context.Background(), w, tables, filepath.Join(dir, "obs.json")))

	for _, name := range []string{"obs_form_1.json", "obs_form_2.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		var rows []map[string]any
		require.NoError(t, json.Unmarshal(data, &rows))
		require.Len(t, rows, 2)
		require.Equal(t, "s1", rows[0][dataset.ColumnSubject])
	}
}

func TestSQLiteWriter(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "export.db")
	w, err := New(DriverSQLite, WithBatchID("run-1"))
	require.NoError(t, err)

	tables := []dataset.Table{sampleTable("form_1"), sampleTable("form_2")}
	require.NoError(t, WriteAll(context.Background(), w, tables, dsn))
	// A second run replaces the table instead of appending.
	require.NoError(t, w.Write(context.Background(), sampleTable("form_1"), dsn))

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "form_1"`).Scan(&count))
	require.Equal(t, 2, count)

	var age sql.NullString
	var batch string
	require.NoError(t, db.QueryRow(`SELECT "age", "batchId" FROM "form_2" WHERE "subjectId" = 's2'`).Scan(&age, &batch))
	require.False(t, age.Valid)
	require.Equal(t, "run-1", batch)
}

func TestSQLWriter_Statements(t *testing.T) {
	w := newSQLWriter(postgresDialect, newSettings(nil))
	require.Equal(t,
		`INSERT INTO "p01.f1" ("a", "b""c") VALUES ($1, $2)`,
		w.insertStatement("p01.f1", []string{"a", `b"c`}))
	require.Equal(t,
		[]string{`DROP TABLE IF EXISTS "t"`, `CREATE TABLE "t" ("a" TEXT)`},
		w.schema("t", []string{"a"}))
}

func TestPostgresWriter_Unreachable(t *testing.T) {
	w, err := New(DriverPostgres)
	require.NoError(t, err)
	err = w.Write(context.Background(), sampleTable("merged"), "postgres://user@127.0.0.1:1/db?sslmode=disable&connect_timeout=1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ping postgres")
}

func TestS3Writer(t *testing.T) {
	var method, path string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  aws.AnonymousCredentials{},
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
	})
	w, err := New(DriverS3, WithS3Client(client))
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), sampleTable("merged"), "s3://exports/runs/obs.csv"))

	require.Equal(t, http.MethodPut, method)
	require.Equal(t, "/exports/runs/obs.csv", path)
	require.True(t, bytes.Contains(body, []byte("subjectId,formCode,age,sex_1")))
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://b/a/../k.csv")
	require.NoError(t, err)
	require.Equal(t, "b", bucket)
	require.Equal(t, "k.csv", key)

	_, _, err = ParseS3URL("/tmp/out.csv")
	require.Error(t, err)
	_, _, err = ParseS3URL("s3://bucket")
	require.Error(t, err)
}

func TestWriteCatalog(t *testing.T) {
	cat := catalog.Catalog{{FormCode: "1", FieldCode: "age", FieldTitle: "Age", DataType: catalog.DataTypeNumeric}}

	var buf bytes.Buffer
	require.NoError(t, WriteCatalog(&buf, cat, FormatYAML))
	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "age", decoded[0]["fieldCode"])

	buf.Reset()
	require.NoError(t, WriteCatalog(&buf, nil, FormatJSON))
	require.Equal(t, "[]", strings.TrimSpace(buf.String()))

	require.Error(t, WriteCatalog(&buf, cat, "xml"))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New("parquet")
	require.Error(t, err)
	require.Len(t, Drivers(), 5)
}
