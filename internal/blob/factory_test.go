package blob

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("expected fs default, got %s", fsStore.Driver())
	}
	mem, err := Open(ctx, Config{Driver: "MEMORY", PublicBaseURL: "https://media.example.com"})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	obj, err := mem.Upload(ctx, "images", "a.png", strings.NewReader("x"), UploadOptions{})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if obj.URL != "https://media.example.com/images/a.png" {
		t.Fatalf("unexpected url %s", obj.URL)
	}
	if _, err := Open(ctx, Config{Driver: "gcs"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, err := Open(ctx, Config{Driver: "s3"}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

func TestMockS3ThroughFacade(t *testing.T) {
	s := NewMockS3ForTests("https://cdn.example.com")
	obj, err := s.Upload(context.Background(), "images", "b.png", strings.NewReader("y"), UploadOptions{})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if obj.URL != "https://cdn.example.com/images/b.png" || s.Driver() != DriverS3 {
		t.Fatalf("unexpected object %+v", obj)
	}
}

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	name := ObjectName("Cover Photo.PNG", now)
	if !regexp.MustCompile(`^[0-9a-f]{8}-1700000000123\.png$`).MatchString(name) {
		t.Fatalf("unexpected name %s", name)
	}
	if other := ObjectName("Cover Photo.PNG", now); other == name {
		t.Fatalf("expected distinct tokens, got %s twice", name)
	}
	if got := ObjectName("noext", now); !strings.HasSuffix(got, "-1700000000123") {
		t.Fatalf("unexpected extensionless name %s", got)
	}
}
