package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/amiresolve/types"
)

func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

func testResult() *types.ResolutionResult {
	return &types.ResolutionResult{
		ResolutionID: "res-001",
		Home:         "eu-west-1",
		Seed:         types.ArtifactDescriptor{ID: "ami-111", Name: "golden-image"},
		Images: map[types.PartitionID]string{
			"eu-west-1": "ami-111",
			"us-east-1": "ami-222",
		},
		Failures: map[types.PartitionID]string{
			"ap-south-1": "throttled",
		},
		PartitionsTotal: 3,
		ResolvedAt:      time.Date(2026, 10, 19, 23, 30, 0, 0, time.FixedZone("x", -2*3600)),
	}
}

func TestPartitionPath(t *testing.T) {
	got := PartitionPath(testResult())
	// ResolvedAt is 2026-10-20 01:30 UTC.
	want := "home_region=eu-west-1/day=2026-10-20/resolution_id=res-001"
	if got != want {
		t.Errorf("PartitionPath() = %q, want %q", got, want)
	}
}

func TestRecords(t *testing.T) {
	records := Records(testResult())
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	wantRegions := []string{"eu-west-1", "us-east-1", "ap-south-1"}
	wantStatus := []string{StatusResolved, StatusResolved, StatusFailed}
	for i, r := range records {
		rec := r.(map[string]any)
		if rec["region"] != wantRegions[i] {
			t.Errorf("record %d region = %v, want %s", i, rec["region"], wantRegions[i])
		}
		if rec["status"] != wantStatus[i] {
			t.Errorf("record %d status = %v, want %s", i, rec["status"], wantStatus[i])
		}
		for _, key := range partitionKeys {
			if _, ok := rec[key]; !ok {
				t.Errorf("record %d missing partition key %q", i, key)
			}
		}
	}

	if got := records[1].(map[string]any)["image_id"]; got != "ami-222" {
		t.Errorf("us-east-1 image_id = %v, want ami-222", got)
	}
	if got := records[2].(map[string]any)["error"]; got != "throttled" {
		t.Errorf("ap-south-1 error = %v, want throttled", got)
	}
}

func TestArchive_WriteReadRoundTrip(t *testing.T) {
	store := lode.NewMemory()
	a, err := New("", sharedFactory(store), "memory")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	partition, err := a.Write(t.Context(), testResult())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if partition != PartitionPath(testResult()) {
		t.Errorf("Write returned %q", partition)
	}

	ds, err := NewDataset(DefaultDataset, sharedFactory(store))
	if err != nil {
		t.Fatalf("NewDataset failed: %v", err)
	}
	latest, err := ds.Latest(t.Context())
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	data, err := ds.Read(t.Context(), latest.ID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("Read returned %d records, want 3", len(data))
	}

	images := map[string]string{}
	for _, item := range data {
		rec, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("record type = %T, want map", item)
		}
		if rec["status"] == StatusResolved {
			images[rec["region"].(string)] = rec["image_id"].(string)
		}
	}
	if images["eu-west-1"] != "ami-111" || images["us-east-1"] != "ami-222" {
		t.Errorf("round-trip images = %v", images)
	}
}

func TestArchive_WriteRejectsMissingID(t *testing.T) {
	a, err := New("", lode.NewMemoryFactory(), "memory")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	r := testResult()
	r.ResolutionID = ""
	if _, err := a.Write(t.Context(), r); err == nil {
		t.Error("expected error for missing resolution id")
	}
	if _, err := a.Write(t.Context(), nil); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestArchive_FS(t *testing.T) {
	root := t.TempDir()
	a, err := NewFS("", root)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	if a.Location() != root {
		t.Errorf("Location() = %q, want %q", a.Location(), root)
	}
	if _, err := a.Write(t.Context(), testResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		prefix string
	}{
		{"bucket", "bucket", ""},
		{"bucket/prefix", "bucket", "prefix"},
		{"bucket/a/b/", "bucket", "a/b"},
		{"s3://bucket/archive", "bucket", "archive"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, prefix := ParseS3Path(tt.in)
			if bucket != tt.bucket || prefix != tt.prefix {
				t.Errorf("ParseS3Path(%q) = (%q, %q), want (%q, %q)", tt.in, bucket, prefix, tt.bucket, tt.prefix)
			}
		})
	}
}

func TestS3Location(t *testing.T) {
	if got := s3Location(S3Config{Bucket: "b"}); got != "s3://b" {
		t.Errorf("got %q", got)
	}
	if got := s3Location(S3Config{Bucket: "b", Prefix: "p"}); got != "s3://b/p" {
		t.Errorf("got %q", got)
	}
}

func TestOpen_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown backend", Config{Backend: "gcs"}},
		{"fs without path", Config{Backend: BackendFS}},
		{"s3 without bucket", Config{Backend: BackendS3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(context.Background(), tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOpen_FS(t *testing.T) {
	a, err := Open(t.Context(), Config{Backend: BackendFS, Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if a == nil {
		t.Fatal("expected archive")
	}
	if (Config{}).Enabled() {
		t.Error("zero config should be disabled")
	}
}

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o" }
func (timeoutError) Timeout() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"AccessDenied: no access", ErrAccessDenied},
		{"received status 403", ErrAccessDenied},
		{"open /data: permission denied", ErrPermissionDenied},
		{"write: no space left on device", ErrDiskFull},
		{"context deadline exceeded", ErrTimeout},
		{"SlowDown: reduce request rate", ErrThrottled},
		{"ExpiredToken: token expired", ErrAuth},
		{"dial tcp 10.0.0.1:443: connection refused", ErrNetwork},
		{"something else", ErrUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := classify(errors.New(tt.msg)); got != tt.want {
				t.Errorf("classify(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}

	if got := classify(timeoutError{}); got != ErrTimeout {
		t.Errorf("typed timeout classified as %v", got)
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("SlowDown")
	err := wrapError("write", "home_region=x", cause)

	if !errors.Is(err, ErrThrottled) {
		t.Error("expected errors.Is(err, ErrThrottled)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "write" {
		t.Errorf("errors.As = %+v", se)
	}
	if wrapError("write", "", nil) != nil {
		t.Error("nil error should stay nil")
	}
}
