package objectstore

import (
	"context"
	"strings"
	"testing"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://reports/2024/may.csv", wantBucket: "reports", wantObject: "2024/may.csv"},
		{uri: "gs://reports/may.csv", wantBucket: "reports", wantObject: "may.csv"},
		{uri: "gs://reports", wantErr: true},
		{uri: "gs://reports/", wantErr: true},
		{uri: "s3://reports/may.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI() = %q, %q", bucket, object)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/reports/may.csv":  "may.csv",
		"file:///tmp/reports/june.csv": "june.csv",
		"gs://bucket":                  "bucket",
	}
	for uri, want := range tests {
		if got := Filename(uri); got != want {
			t.Errorf("Filename(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	uri, err := store.Put(ctx, "reports/monthly.csv", "text/csv", strings.NewReader("date,amount\n"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !strings.HasPrefix(uri, "file://") || Filename(uri) != "monthly.csv" {
		t.Errorf("uri = %q", uri)
	}

	data, err := store.Get(ctx, uri)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "date,amount\n" {
		t.Errorf("content = %q", data)
	}
}

func TestLocalStoreRejectsEscapingNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Put(context.Background(), "../outside.csv", "text/csv", strings.NewReader("x")); err == nil {
		t.Error("Put() should reject names outside the store directory")
	}
	if _, err := store.Get(context.Background(), "gs://bucket/x.csv"); err == nil {
		t.Error("Get() should reject non-file URIs")
	}
}
