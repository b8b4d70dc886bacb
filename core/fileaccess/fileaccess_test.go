package fileaccess

import (
	"bytes"
	"os"
	"path"
	"testing"
)

type testDoc struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func checkRoundTrip(t *testing.T, fs FileAccess, bucket string) {
	t.Helper()

	exists, err := fs.ObjectExists(bucket, "refs/data.bin")
	if err != nil {
		t.Fatalf("ObjectExists failed: %v", err)
	}
	if exists {
		t.Errorf("refs/data.bin should not exist yet")
	}

	wrote := []byte{250, 130, 10, 0, 33}
	if err := fs.WriteObject(bucket, "refs/data.bin", wrote); err != nil {
		t.Fatalf("WriteObject failed: %v", err)
	}

	exists, err = fs.ObjectExists(bucket, "refs/data.bin")
	if err != nil || !exists {
		t.Errorf("refs/data.bin should exist, got %v|%v", exists, err)
	}

	read, err := fs.ReadObject(bucket, "refs/data.bin")
	if err != nil {
		t.Fatalf("ReadObject failed: %v", err)
	}
	if !bytes.Equal(read, wrote) {
		t.Errorf("ReadObject got %v; want %v", read, wrote)
	}

	// JSON round trip
	if err := fs.WriteJSON(bucket, "refs/doc.json", testDoc{Name: "dark", Value: 3}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	var doc testDoc
	if err := fs.ReadJSON(bucket, "refs/doc.json", &doc, false); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if doc.Name != "dark" || doc.Value != 3 {
		t.Errorf("ReadJSON got %+v", doc)
	}

	// Missing file reads should report not-found
	_, err = fs.ReadObject(bucket, "refs/nope.bin")
	if err == nil || !fs.IsNotFoundError(err) {
		t.Errorf("expected not-found error, got %v", err)
	}

	// ReadJSON with emptyIfNotFound shouldn't error
	var empty testDoc
	if err := fs.ReadJSON(bucket, "refs/nope.json", &empty, true); err != nil {
		t.Errorf("ReadJSON emptyIfNotFound returned error: %v", err)
	}

	listed, err := fs.ListObjects(bucket, "refs/")
	if err != nil {
		t.Fatalf("ListObjects failed: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("ListObjects got %v items: %v; want 2", len(listed), listed)
	}

	if err := fs.DeleteObject(bucket, "refs/data.bin"); err != nil {
		t.Errorf("DeleteObject failed: %v", err)
	}
	exists, _ = fs.ObjectExists(bucket, "refs/data.bin")
	if exists {
		t.Errorf("refs/data.bin should be gone after delete")
	}
}

func Test_MemoryAccess(t *testing.T) {
	checkRoundTrip(t, MakeMemoryAccess(), "test-bucket")
}

func Test_FSAccess(t *testing.T) {
	dir, err := os.MkdirTemp("", "fileaccess-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	checkRoundTrip(t, &FSAccess{}, path.Join(dir, "bucket"))
}
