package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/KaramelBytes/tableloom/internal/dispatch"
	"github.com/KaramelBytes/tableloom/internal/table"
)

type fakeQuerier struct {
	result dispatch.Result
	err    error
	prompt string
}

func (f *fakeQuerier) Dispatch(_ context.Context, prompt string) (dispatch.Result, error) {
	f.prompt = prompt
	return f.result, f.err
}

func newTestServer(t *testing.T, q *fakeQuerier) *Server {
	t.Helper()
	if q == nil {
		q = &fakeQuerier{result: dispatch.Result{Text: "ok"}}
	}
	return NewServer(Options{Addr: "127.0.0.1:0"}, func(*Dataset) Querier { return q }, nil)
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func uploadDataset(t *testing.T, s *Server, filename, content string) string {
	t.Helper()
	body, ctype := multipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/datasets", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("upload status = %d, want 303: %s", rr.Code, rr.Body.String())
	}
	loc := rr.Header().Get("Location")
	if !strings.HasPrefix(loc, "/datasets/") {
		t.Fatalf("redirect = %q, want /datasets/{id}", loc)
	}
	return strings.TrimPrefix(loc, "/datasets/")
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Upload") {
		t.Fatalf("index page missing upload form:\n%s", rr.Body.String())
	}
}

func TestUploadAndView(t *testing.T) {
	s := newTestServer(t, nil)
	id := uploadDataset(t, s, "harvest.csv", "plot,moisture\nA1,74\nB3,68\n")

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/datasets/"+id, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("view status = %d, want 200", rr.Code)
	}
	page := rr.Body.String()
	// The loaded table re-displays losslessly.
	for _, want := range []string{"plot", "moisture", "A1", "74", "B3", "68"} {
		if !strings.Contains(page, want) {
			t.Fatalf("dataset page missing %q", want)
		}
	}
}

func TestUploadRejectsGarbage(t *testing.T) {
	s := newTestServer(t, nil)
	body, ctype := multipartUpload(t, "x.csv", "")
	req := httptest.NewRequest(http.MethodPost, "/datasets", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "could not parse") {
		t.Fatalf("expected parse error banner:\n%s", rr.Body.String())
	}
}

func TestAskEchoesPromptAndRendersText(t *testing.T) {
	q := &fakeQuerier{result: dispatch.Result{Text: "B3 is driest"}}
	s := newTestServer(t, q)
	id := uploadDataset(t, s, "harvest.csv", "plot,moisture\nA1,74\nB3,68\n")

	form := url.Values{"prompt": {"which plot is driest?"}}
	req := httptest.NewRequest(http.MethodPost, "/datasets/"+id+"/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("ask status = %d, want 200", rr.Code)
	}
	page := rr.Body.String()
	if !strings.Contains(page, "Your query: which plot is driest?") {
		t.Fatalf("submitted prompt not echoed:\n%s", page)
	}
	if !strings.Contains(page, "B3 is driest") {
		t.Fatalf("result text missing:\n%s", page)
	}
	if q.prompt != "which plot is driest?" {
		t.Fatalf("dispatcher got prompt %q", q.prompt)
	}
}

func TestAskRendersTableOnce(t *testing.T) {
	tbl, err := table.New("r", []string{"plot"}, [][]any{{"B3"}})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	q := &fakeQuerier{result: dispatch.Result{Table: tbl}}
	s := newTestServer(t, q)
	id := uploadDataset(t, s, "h.csv", "plot,moisture\nA1,74\n")

	form := url.Values{"prompt": {"driest?"}}
	req := httptest.NewRequest(http.MethodPost, "/datasets/"+id+"/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	page := rr.Body.String()
	// A tabular result renders through the grid path only; exactly one
	// occurrence of the result cell.
	if got := strings.Count(page, "<td>B3</td>"); got != 1 {
		t.Fatalf("result cell rendered %d times, want exactly 1:\n%s", got, page)
	}
}

func TestAskEngineFailureShowsBanner(t *testing.T) {
	q := &fakeQuerier{err: errors.New("authentication failed")}
	s := newTestServer(t, q)
	id := uploadDataset(t, s, "h.csv", "plot\nA1\n")

	form := url.Values{"prompt": {"q"}}
	req := httptest.NewRequest(http.MethodPost, "/datasets/"+id+"/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "query failed") {
		t.Fatalf("expected error banner:\n%s", rr.Body.String())
	}
}

func TestUnknownDatasetIs404(t *testing.T) {
	s := newTestServer(t, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/datasets/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestStoreEvictsOldest(t *testing.T) {
	st := NewStore(2)
	t1, _ := table.New("one", []string{"a"}, nil)
	t2, _ := table.New("two", []string{"a"}, nil)
	t3, _ := table.New("three", []string{"a"}, nil)
	d1 := st.Add(t1, nil)
	st.Add(t2, nil)
	st.Add(t3, nil)
	if st.Len() != 2 {
		t.Fatalf("len = %d, want 2", st.Len())
	}
	if _, ok := st.Get(d1.ID); ok {
		t.Fatal("oldest dataset should have been evicted")
	}
}
