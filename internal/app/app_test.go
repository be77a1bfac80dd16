package app

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/product-catalog/internal/domain/catalog"
	"github.com/xenking/product-catalog/pkg/health"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	return &Config{
		Addr:         defaultAddr,
		DataFile:     filepath.Join(root, "data", "products.json"),
		PublicDir:    filepath.Join(root, "public"),
		MediaDir:     "uploads/images",
		MaxImageSize: catalog.DefaultMaxImageSize,
	}
}

func TestNewCatalog_InitializesStorage(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewCatalog(context.Background(), nil, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.DataFile)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	info, err := os.Stat(filepath.Join(cfg.PublicDir, "uploads", "images"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, c.Store.Check(context.Background()))
	assert.NoError(t, c.Media.Check(context.Background()))
}

func TestNewCatalog_CorruptStore(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.DataFile), 0o755))
	require.NoError(t, os.WriteFile(cfg.DataFile, []byte("{not json"), 0o644))

	_, err := NewCatalog(context.Background(), nil, cfg)
	require.ErrorIs(t, err, catalog.ErrStoreCorrupt)
}

func TestMux_UploadIsServedStatically(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewCatalog(context.Background(), nil, cfg)
	require.NoError(t, err)

	h := health.New(time.Second)
	h.AddReadinessCheck("store", c.Store.Check)
	h.SetReady(true)
	srv := httptest.NewServer(NewMux(cfg, c, h))
	t.Cleanup(srv.Close)

	image := []byte("GIF89a-not-really")
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Sticker"))
	require.NoError(t, mw.WriteField("description", "Vinyl sticker"))
	require.NoError(t, mw.WriteField("price", "500"))
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="sticker.gif"`)
	hdr.Set("Content-Type", "image/gif")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(image)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/products", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var ref string
	require.NoError(t, jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) == "imageRef" {
			var err error
			ref, err = d.Str()
			return err
		}
		return d.Skip()
	}))
	require.NotEmpty(t, ref)

	resp, err = http.Get(srv.URL + ref)
	require.NoError(t, err)
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, image, served)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("PORT", "8181")

	cfg := &Config{Addr: defaultAddr}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "0.0.0.0:8181", cfg.Addr)

	cfg = &Config{Addr: "127.0.0.1:9000"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{DataFile: "d.json", PublicDir: "public", MaxImageSize: catalog.DefaultMaxImageSize}
	require.NoError(t, valid.validate())

	for name, mutate := range map[string]func(*Config){
		"no data file":  func(c *Config) { c.DataFile = "" },
		"no public dir": func(c *Config) { c.PublicDir = "" },
		"zero size":     func(c *Config) { c.MaxImageSize = 0 },
		"huge size":     func(c *Config) { c.MaxImageSize = 1 << 40 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
}
