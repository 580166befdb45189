package assets

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

const testBucket = "moveit-assets"

// newBucketServer serves objects over the XML read path and the bucket over the JSON API.
func newBucketServer(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/storage/v1/b/"+testBucket, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"kind": "storage#bucket", "name": testBucket})
	})
	mux.HandleFunc("/"+testBucket+"/", func(w http.ResponseWriter, r *http.Request) {
		data, ok := objects[strings.TrimPrefix(r.URL.Path, "/"+testBucket+"/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(data))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, srv *httptest.Server, bucket string) *Service {
	t.Helper()
	t.Setenv("STORAGE_EMULATOR_HOST", srv.URL)

	svc, err := NewService(context.Background(), bucket, srv.URL+"/storage/v1/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestLoadCatalogFromBucket(t *testing.T) {
	srv := newBucketServer(t, map[string]string{
		"challenges.json": `[{"type":"eye","description":"Olhe para longe","amount":60}]`,
	})
	svc := newTestService(t, srv, testBucket)

	catalog, err := svc.LoadCatalog(context.Background(), "/challenges.json")
	require.NoError(t, err)
	require.Equal(t, []challenge.Definition{{Kind: challenge.KindEye, Description: "Olhe para longe", Amount: 60}}, catalog.All())
}

func TestLoadCatalogRejectsBadObjects(t *testing.T) {
	oversized := `[{"type":"body","description":"` + strings.Repeat("a", maxCatalogBytes) + `","amount":70}]`
	srv := newBucketServer(t, map[string]string{
		"oversized.json": oversized,
		"invalid.json":   `[{"type":"body","description":"Estique","amount":0}]`,
		"empty.json":     `[]`,
	})
	svc := newTestService(t, srv, testBucket)
	ctx := context.Background()

	_, err := svc.LoadCatalog(ctx, "oversized.json")
	require.ErrorContains(t, err, "decode challenge catalog")

	_, err = svc.LoadCatalog(ctx, "invalid.json")
	require.ErrorIs(t, err, challenge.ErrInvalidDefinition)

	_, err = svc.LoadCatalog(ctx, "empty.json")
	require.ErrorIs(t, err, challenge.ErrEmptyCatalog)

	_, err = svc.LoadCatalog(ctx, "missing.json")
	require.ErrorIs(t, err, storage.ErrObjectNotExist)
}

func TestPing(t *testing.T) {
	srv := newBucketServer(t, nil)

	require.NoError(t, newTestService(t, srv, testBucket).Ping(context.Background()))

	err := newTestService(t, srv, "other-bucket").Ping(context.Background())
	require.ErrorContains(t, err, "bucket other-bucket")
}

func TestSignedURL(t *testing.T) {
	srv := newBucketServer(t, nil)
	svc := newTestService(t, srv, testBucket)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	svc.UseSigningKey("assets@moveit.iam.gserviceaccount.com", pemKey)

	url, err := svc.SignedURL(context.Background(), "/notification.mp3")
	require.NoError(t, err)
	require.Contains(t, url, "/"+testBucket+"/notification.mp3")
	require.Contains(t, url, "X-Goog-Signature=")
	require.Contains(t, url, "X-Goog-Algorithm=GOOG4-RSA-SHA256")
}

func TestObjectPath(t *testing.T) {
	tests := map[string]string{
		"/notification.mp3":   "notification.mp3",
		"sounds/ding.ogg":     "sounds/ding.ogg",
		"  //challenges.json": "challenges.json",
	}
	for in, want := range tests {
		require.Equal(t, want, objectPath(in), in)
	}
}

func TestNewServiceRequiresBucket(t *testing.T) {
	_, err := NewService(context.Background(), " ", "")
	require.Error(t, err)
}
