package httpproto

import (
	"io"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func TestWriterSendsHeaderAndBody(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	if err := unix.SetNonblock(int(w.Fd()), true); err != nil {
		t.Fatalf("SetNonblock: %v", err)
	}

	var writer Writer
	header := []byte("HTTP/1.1 200 OK\r\n\r\n")
	body := []byte("hello world")
	writer.Prepare(header, body, false)

	for !writer.Done() {
		retry, err := writer.WriteOnce(int(w.Fd()))
		if err != nil {
			t.Fatalf("WriteOnce: %v", err)
		}
		if retry {
			t.Fatalf("unexpected EAGAIN on a freshly drained pipe")
		}
	}
	w.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := string(header) + string(body)
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStatFileClassifiesMissing(t *testing.T) {
	res, _, err := StatFile("/nonexistent/path/should/not/exist.html")
	if err != nil {
		t.Fatalf("StatFile: %v", err)
	}
	if res != StatMissing {
		t.Fatalf("StatFile() = %v, want StatMissing", res)
	}
}

func TestStatFileClassifiesDir(t *testing.T) {
	dir := t.TempDir()
	res, _, err := StatFile(dir)
	if err != nil {
		t.Fatalf("StatFile: %v", err)
	}
	if res != StatIsDir {
		t.Fatalf("StatFile() = %v, want StatIsDir", res)
	}
}

func TestStatFileClassifiesOK(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/ok.html"
	if err := os.WriteFile(path, []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	res, info, err := StatFile(path)
	if err != nil {
		t.Fatalf("StatFile: %v", err)
	}
	if res != StatOK {
		t.Fatalf("StatFile() = %v, want StatOK", res)
	}
	if info.Size() != 13 {
		t.Fatalf("Size() = %d, want 13", info.Size())
	}
}

func TestMapFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/mapped.html"
	content := []byte("<html><body>hi</body></html>")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mf, err := MapFile(path, int64(len(content)))
	if err != nil {
		t.Fatalf("MapFile: %v", err)
	}
	if string(mf.Bytes()) != string(content) {
		t.Fatalf("Bytes() = %q, want %q", mf.Bytes(), content)
	}
	if err := mf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
