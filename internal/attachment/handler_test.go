package attachment

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newUploadRouter(t *testing.T, maxBytes int64) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	h := NewUploadHandler(NewLocalStorage(dir, "https://files.example.com/uploads/"), maxBytes, nil)
	r := gin.New()
	r.POST("/upload/:category", h.UploadFile)
	return r, dir
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func upload(r *gin.Engine, category string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/upload/"+category, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadStoresFile(t *testing.T) {
	r, dir := newUploadRouter(t, 1<<20)
	content := []byte("\x89PNG fake image bytes")
	body, ct := multipartBody(t, "Rex.PNG", "image/png", content)

	w := upload(r, "image", body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		URL  string `json:"url"`
		Name string `json:"name"`
		Type string `json:"type"`
		Size int64  `json:"size"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "Rex.PNG" || resp.Type != "image/png" || resp.Size != int64(len(content)) {
		t.Fatalf("response = %+v", resp)
	}
	if !strings.HasPrefix(resp.URL, "https://files.example.com/uploads/image/") || !strings.HasSuffix(resp.URL, ".png") {
		t.Fatalf("url = %s", resp.URL)
	}

	stored, err := os.ReadFile(filepath.Join(dir, "image", filepath.Base(resp.URL)))
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Fatal("stored content differs from the upload")
	}
}

func TestUploadRejections(t *testing.T) {
	r, _ := newUploadRouter(t, 8)

	body, ct := multipartBody(t, "a.png", "image/png", []byte("1234"))
	if w := upload(r, "hologram", body, ct); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown category status = %d", w.Code)
	}

	body, ct = multipartBody(t, "a.exe", "application/x-msdownload", []byte("1234"))
	if w := upload(r, "file", body, ct); w.Code != http.StatusBadRequest {
		t.Fatalf("disallowed type status = %d", w.Code)
	}

	body, ct = multipartBody(t, "a.mp4", "video/mp4", []byte("1234"))
	if w := upload(r, "audio", body, ct); w.Code != http.StatusBadRequest {
		t.Fatalf("video under audio status = %d", w.Code)
	}

	body, ct = multipartBody(t, "big.png", "image/png", []byte("0123456789abcdef"))
	if w := upload(r, "image", body, ct); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized status = %d", w.Code)
	}

	if w := upload(r, "image", &bytes.Buffer{}, "application/json"); w.Code != http.StatusBadRequest {
		t.Fatalf("missing file status = %d", w.Code)
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory("IMAGE"); err != nil || c != CategoryImage {
		t.Fatalf("ParseCategory(IMAGE) = %q, %v", c, err)
	}
	if _, err := ParseCategory("doc"); err == nil {
		t.Fatal("unknown category accepted")
	}
	if !CategoryAudio.Allows("audio/ogg") || CategoryAudio.Allows("image/png") {
		t.Fatal("audio allow-list is wrong")
	}
}
