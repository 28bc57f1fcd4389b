package streamio

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestZstdRoundTrip(t *testing.T) {
	content := strings.Repeat("objs: {\n    press: {\n        lane: 0,\n    },\n}\n", 64)
	var buf bytes.Buffer
	z := GetZstdWriter(&buf)
	if _, err := io.Copy(z, strings.NewReader(content)); err != nil {
		t.Fatalf("compress error: %v", err)
	}
	PutZstdWriter(z)
	if buf.Len() >= len(content) {
		t.Fatalf("compression did not shrink payload: %d >= %d", buf.Len(), len(content))
	}
	r, err := GetZstdReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decoder error: %v", err)
	}
	defer PutZstdReader(r)
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		t.Fatalf("decompress error: %v", err)
	}
	if out.String() != content {
		t.Fatal("round trip mismatch")
	}
}
