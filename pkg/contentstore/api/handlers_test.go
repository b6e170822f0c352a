package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duolang/contentstore/pkg/contentstore"
	"github.com/duolang/contentstore/pkg/contentstore/objectkey"
	repomemory "github.com/duolang/contentstore/pkg/contentstore/repo/memory"
	memorystorage "github.com/duolang/contentstore/pkg/contentstore/storage/memory"
)

func newTestServer(t *testing.T, jwtSecret string) (*httptest.Server, contentstore.Service) {
	t.Helper()

	svc, err := contentstore.New(
		contentstore.WithRepository(repomemory.New()),
		contentstore.WithBlobStore(memorystorage.New()),
		contentstore.WithKeyCodec(objectkey.Codec{Bucket: "mybucket", Region: "us-east-1"}),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(svc, jwtSecret).Routes())
	t.Cleanup(srv.Close)
	return srv, svc
}

func seedProfile(t *testing.T, svc contentstore.Service, lang contentstore.Language, fields map[string]any) {
	t.Helper()
	_, err := svc.UpsertRecord(context.Background(), contentstore.UpsertRecordRequest{
		Kind:       contentstore.KindProfile,
		NaturalKey: contentstore.ProfileKey,
		Language:   lang,
		Fields:     fields,
	})
	require.NoError(t, err)
}

// multipartBody builds a multipart form with one "file" part carrying an
// explicit Content-Type.
func multipartBody(t *testing.T, fileName, mimeType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func decodeJSON(t *testing.T, body io.Reader, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(body).Decode(v))
}

func TestGetProfileLanguageResolution(t *testing.T) {
	srv, svc := newTestServer(t, "")
	seedProfile(t, svc, contentstore.LanguageZH, map[string]any{"name": "张三"})
	seedProfile(t, svc, contentstore.LanguageEN, map[string]any{"name": "John"})

	tests := []struct {
		name     string
		url      string
		header   map[string]string
		wantLang string
		wantName string
	}{
		{
			name:     "default is chinese",
			url:      "/api/profile",
			wantLang: "zh",
			wantName: "张三",
		},
		{
			name:     "query parameter selects english",
			url:      "/api/profile?language=en",
			wantLang: "en",
			wantName: "John",
		},
		{
			name:     "query wins over header",
			url:      "/api/profile?lang=zh",
			header:   map[string]string{"x-content-language": "en"},
			wantLang: "zh",
			wantName: "张三",
		},
		{
			name:     "custom header selects english",
			url:      "/api/profile",
			header:   map[string]string{"x-content-language": "en"},
			wantLang: "en",
			wantName: "John",
		},
		{
			name:     "accept-language selects english",
			url:      "/api/profile",
			header:   map[string]string{"Accept-Language": "en-US,en;q=0.9"},
			wantLang: "en",
			wantName: "John",
		},
		{
			name:     "unsupported accept-language falls back to default",
			url:      "/api/profile",
			header:   map[string]string{"Accept-Language": "fr-FR,fr;q=0.9"},
			wantLang: "zh",
			wantName: "张三",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+tt.url, nil)
			require.NoError(t, err)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body struct {
				ContentLanguage string `json:"contentLanguage"`
				Profile         struct {
					Fields map[string]any `json:"fields"`
				} `json:"profile"`
			}
			decodeJSON(t, resp.Body, &body)
			assert.Equal(t, tt.wantLang, body.ContentLanguage)
			assert.Equal(t, tt.wantName, body.Profile.Fields["name"])
		})
	}
}

func TestGetProfileFallback(t *testing.T) {
	srv, svc := newTestServer(t, "")
	seedProfile(t, svc, contentstore.LanguageZH, map[string]any{"name": "张三"})

	resp, err := http.Get(srv.URL + "/api/profile?language=en")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		ContentLanguage string `json:"contentLanguage"`
	}
	decodeJSON(t, resp.Body, &body)
	assert.Equal(t, "zh", body.ContentLanguage)
}

func TestUploadAvatar(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		srv, svc := newTestServer(t, "")
		seedProfile(t, svc, contentstore.LanguageZH, nil)

		body, contentType := multipartBody(t, "photo.jpg", "image/jpeg", bytes.Repeat([]byte("a"), 2<<20))
		resp, err := http.Post(srv.URL+"/api/admin/avatar", contentType, body)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]string
		decodeJSON(t, resp.Body, &result)
		assert.Contains(t, result["avatar"], "https://mybucket.s3.us-east-1.amazonaws.com/admin/avatar/")
		assert.Contains(t, result["avatar"], "photo.jpg")
	})

	t.Run("oversize file rejected", func(t *testing.T) {
		srv, svc := newTestServer(t, "")
		seedProfile(t, svc, contentstore.LanguageZH, nil)

		body, contentType := multipartBody(t, "big.jpg", "image/jpeg", bytes.Repeat([]byte("a"), 6<<20))
		resp, err := http.Post(srv.URL+"/api/admin/avatar", contentType, body)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("non-image rejected", func(t *testing.T) {
		srv, svc := newTestServer(t, "")
		seedProfile(t, svc, contentstore.LanguageZH, nil)

		body, contentType := multipartBody(t, "cv.pdf", "application/pdf", []byte("pdf"))
		resp, err := http.Post(srv.URL+"/api/admin/avatar", contentType, body)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing file part rejected", func(t *testing.T) {
		srv, svc := newTestServer(t, "")
		seedProfile(t, svc, contentstore.LanguageZH, nil)

		resp, err := http.Post(srv.URL+"/api/admin/avatar", "multipart/form-data; boundary=x", strings.NewReader("--x--"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing profile reports not found", func(t *testing.T) {
		srv, _ := newTestServer(t, "")

		body, contentType := multipartBody(t, "photo.jpg", "image/jpeg", []byte("jpeg"))
		resp, err := http.Post(srv.URL+"/api/admin/avatar", contentType, body)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUploadFaviconCreatesSettingsRow(t *testing.T) {
	srv, svc := newTestServer(t, "")

	body, contentType := multipartBody(t, "favicon.ico", "image/x-icon", []byte("icon"))
	resp, err := http.Post(srv.URL+"/api/admin/favicon", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec, err := svc.GetRecord(context.Background(), contentstore.KindSettings, contentstore.SettingsKey, contentstore.LanguageZH)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Assets[contentstore.SlotFavicon])
}

func TestUploadTechIcon(t *testing.T) {
	srv, _ := newTestServer(t, "")

	body, contentType := multipartBody(t, "go.svg", "image/svg+xml", []byte("<svg/>"))
	resp, err := http.Post(srv.URL+"/api/admin/tech/icon", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]string
	decodeJSON(t, resp.Body, &result)
	assert.Contains(t, result["iconUrl"], "tech/icons/")
}

func TestProjectLifecycle(t *testing.T) {
	srv, svc := newTestServer(t, "")
	ctx := context.Background()

	_, err := svc.UpsertRecord(ctx, contentstore.UpsertRecordRequest{
		Kind:       contentstore.KindProject,
		NaturalKey: "proj-1",
		Language:   contentstore.LanguageZH,
		Fields:     map[string]any{"title": "项目"},
	})
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/projects/proj-1")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rec recordResponse
		decodeJSON(t, resp.Body, &rec)
		assert.Equal(t, "项目", rec.Fields["title"])
	})

	t.Run("update merges fields", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/admin/projects/proj-1",
			strings.NewReader(`{"description":"一个项目"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rec recordResponse
		decodeJSON(t, resp.Body, &rec)
		assert.Equal(t, "项目", rec.Fields["title"])
		assert.Equal(t, "一个项目", rec.Fields["description"])
	})

	t.Run("image upload", func(t *testing.T) {
		body, contentType := multipartBody(t, "shot.png", "image/png", []byte("png"))
		resp, err := http.Post(srv.URL+"/api/admin/projects/proj-1/image", contentType, body)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]string
		decodeJSON(t, resp.Body, &result)
		assert.Contains(t, result["image"], "projects/images/")
	})

	t.Run("delete", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/admin/projects/proj-1", nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		getResp, err := http.Get(srv.URL + "/api/projects/proj-1")
		require.NoError(t, err)
		defer getResp.Body.Close()
		assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
	})
}

func TestAttachments(t *testing.T) {
	srv, _ := newTestServer(t, "")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="cv.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("pdf-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("tags", `["resume","2026"]`))
	require.NoError(t, writer.Close())

	resp, err := http.Post(srv.URL+"/api/admin/attachments", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created recordResponse
	decodeJSON(t, resp.Body, &created)
	assert.Equal(t, "cv.pdf", created.Fields["name"])
	assert.NotEmpty(t, created.Assets[contentstore.SlotAttachment])

	t.Run("listed afterwards", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/attachments")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var records []recordResponse
		decodeJSON(t, resp.Body, &records)
		require.Len(t, records, 1)
		assert.Equal(t, created.NaturalKey, records[0].NaturalKey)
	})

	t.Run("delete removes it", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/admin/attachments/"+created.NaturalKey, nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		listResp, err := http.Get(srv.URL + "/api/attachments")
		require.NoError(t, err)
		defer listResp.Body.Close()

		var records []recordResponse
		decodeJSON(t, listResp.Body, &records)
		assert.Empty(t, records)
	})
}

func TestAttachmentRejectionLeavesNoRecord(t *testing.T) {
	srv, _ := newTestServer(t, "")

	body, contentType := multipartBody(t, "huge.bin", "application/octet-stream", bytes.Repeat([]byte("a"), 51<<20))
	resp, err := http.Post(srv.URL+"/api/admin/attachments", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	listResp, err := http.Get(srv.URL + "/api/attachments")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var records []recordResponse
	decodeJSON(t, listResp.Body, &records)
	assert.Empty(t, records)
}

func TestFaviconRejectionCreatesNoSettingsRow(t *testing.T) {
	srv, svc := newTestServer(t, "")

	body, contentType := multipartBody(t, "favicon.png", "image/png", bytes.Repeat([]byte("a"), 2<<20))
	resp, err := http.Post(srv.URL+"/api/admin/favicon", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = svc.GetRecord(context.Background(), contentstore.KindSettings, contentstore.SettingsKey, contentstore.LanguageZH)
	assert.ErrorIs(t, err, contentstore.ErrRecordNotFound)
}

func TestCatalogCRUD(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Post(srv.URL+"/api/admin/tech", "application/json", strings.NewReader(`{"name":"Go","category":"backend"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created recordResponse
	decodeJSON(t, resp.Body, &created)
	require.NotEmpty(t, created.NaturalKey)
	assert.Equal(t, "Go", created.Fields["name"])

	t.Run("listed for the resolved language", func(t *testing.T) {
		listResp, err := http.Get(srv.URL + "/api/tech")
		require.NoError(t, err)
		defer listResp.Body.Close()
		require.Equal(t, http.StatusOK, listResp.StatusCode)

		var records []recordResponse
		decodeJSON(t, listResp.Body, &records)
		require.Len(t, records, 1)
		assert.Equal(t, created.NaturalKey, records[0].NaturalKey)
	})

	t.Run("lists do not fall back across languages", func(t *testing.T) {
		listResp, err := http.Get(srv.URL + "/api/tech?language=en")
		require.NoError(t, err)
		defer listResp.Body.Close()

		var records []recordResponse
		decodeJSON(t, listResp.Body, &records)
		assert.Empty(t, records)
	})

	t.Run("update merges fields", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/admin/tech/"+created.NaturalKey,
			strings.NewReader(`{"category":"tooling"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rec recordResponse
		decodeJSON(t, resp.Body, &rec)
		assert.Equal(t, "Go", rec.Fields["name"])
		assert.Equal(t, "tooling", rec.Fields["category"])
	})

	t.Run("delete removes it", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/admin/tech/"+created.NaturalKey, nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		listResp, err := http.Get(srv.URL + "/api/tech")
		require.NoError(t, err)
		defer listResp.Body.Close()

		var records []recordResponse
		decodeJSON(t, listResp.Body, &records)
		assert.Empty(t, records)
	})

	t.Run("other catalog kinds are routed", func(t *testing.T) {
		for _, path := range []string{"tags", "custom-fields", "resume-sections"} {
			resp, err := http.Post(srv.URL+"/api/admin/"+path, "application/json", strings.NewReader(`{"name":"x"}`))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode, path)

			listResp, err := http.Get(srv.URL + "/api/" + path)
			require.NoError(t, err)
			listResp.Body.Close()
			assert.Equal(t, http.StatusOK, listResp.StatusCode, path)
		}
	})
}

func TestDownloadEndpoint(t *testing.T) {
	srv, svc := newTestServer(t, "")

	url, err := svc.UploadAsset(context.Background(), contentstore.UploadAssetRequest{
		Slot:     contentstore.SlotAttachment,
		FileName: "cv.pdf",
		MimeType: "application/pdf",
		Size:     9,
		Reader:   strings.NewReader("pdf-bytes"),
	})
	require.NoError(t, err)

	t.Run("streams the object", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/assets/download?url=" + url)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "pdf-bytes", string(data))
	})

	t.Run("missing key", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/assets/download")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown object", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/assets/download?key=uploads/nothing.pdf")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestPresignEndpoint(t *testing.T) {
	srv, svc := newTestServer(t, "")

	url, err := svc.UploadAsset(context.Background(), contentstore.UploadAssetRequest{
		Slot:     contentstore.SlotAttachment,
		FileName: "cv.pdf",
		MimeType: "application/pdf",
		Size:     1024,
		Reader:   strings.NewReader("pdf-bytes"),
	})
	require.NoError(t, err)

	t.Run("by url", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/assets/presign?url=" + url)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]string
		decodeJSON(t, resp.Body, &result)
		assert.Contains(t, result["url"], "memory://uploads/")
	})

	t.Run("missing key", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/assets/presign")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown object", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/assets/presign?key=uploads/nothing.pdf")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestAdminGuard(t *testing.T) {
	srv, svc := newTestServer(t, "test-secret")
	seedProfile(t, svc, contentstore.LanguageZH, map[string]any{"name": "张三"})

	t.Run("public routes stay open", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/profile")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("admin routes require a token", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/admin/profile", strings.NewReader(`{}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
