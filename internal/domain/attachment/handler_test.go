package attachment

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/textproto"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *mockRepo, *fakeBlobs, *echo.Echo) {
	svc, repo, blobs := newTestService()
	return NewHandler(svc), repo, blobs, echo.New()
}

func TestHandler_ListForAppointment(t *testing.T) {
	h, repo, _, e := newTestHandler()
	appt := uuid.New()
	seedFile(repo, appt, "a.pdf", "p/a")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(appt.String())

	if err := h.ListForAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var items []Descriptor
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(items) != 1 || items[0].URL == nil {
		t.Errorf("unexpected items %+v", items)
	}
}

func TestHandler_ListForAppointment_InvalidID(t *testing.T) {
	h, _, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.ListForAppointment(c); err == nil {
		t.Error("expected error for invalid id")
	}
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.CreateFormFile(FormField, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHandler_UploadForAppointment(t *testing.T) {
	h, repo, _, e := newTestHandler()
	body, ct := multipartBody(t, map[string]string{"scan.pdf": "pdf-bytes"})

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.UploadForAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if len(repo.files) != 1 {
		t.Errorf("expected 1 file row, got %d", len(repo.files))
	}
}

func TestHandler_UploadForAppointment_MissingPartTypeStoresNullFileType(t *testing.T) {
	h, repo, blobs, e := newTestHandler()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+FormField+`"; filename="note.txt"`)
	pw, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	pw.Write([]byte("hello"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.UploadForAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(repo.files) != 1 {
		t.Fatalf("expected 1 file row, got %d", len(repo.files))
	}
	if repo.files[0].FileType != nil {
		t.Errorf("expected NULL file_type, got %q", *repo.files[0].FileType)
	}
	if len(blobs.objects) != 1 {
		t.Errorf("expected blob to be stored, got %d objects", len(blobs.objects))
	}
}

func TestHandler_UploadForAppointment_PartialFailure(t *testing.T) {
	h, _, blobs, e := newTestHandler()
	blobs.failPut["broken"] = true
	body, ct := multipartBody(t, map[string]string{"ok.pdf": "1", "broken.pdf": "2"})

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.UploadForAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusMultiStatus {
		t.Errorf("expected 207, got %d", rec.Code)
	}
}

func TestHandler_UploadForAppointment_NoFiles(t *testing.T) {
	h, _, _, e := newTestHandler()
	body, ct := multipartBody(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, ct)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.UploadForAppointment(c); err == nil {
		t.Error("expected error when no files are provided")
	}
}

func TestHandler_ListForPatient(t *testing.T) {
	h, repo, _, e := newTestHandler()
	patient, appt := uuid.New(), uuid.New()
	repo.byPatient[patient] = []uuid.UUID{appt}
	seedFile(repo, appt, "a.pdf", "p/a")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(patient.String())

	if err := h.ListForPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
