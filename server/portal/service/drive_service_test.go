package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriveClientStore struct {
	clientID   string
	folderID   string
	folderLink string
}

func (s *fakeDriveClientStore) SetDriveFolder(_ context.Context, id, folderID, folderLink string) error {
	s.clientID = id
	s.folderID = folderID
	s.folderLink = folderLink
	return nil
}

// fakeDrive emulates the token endpoint and the files API with an in-memory
// folder tree keyed by parent/name.
type fakeDrive struct {
	mu           sync.Mutex
	folders      map[string]string
	nextID       int
	created      int
	createdNames []string
	parents      map[string]string
	names        map[string]string
}

var driveQueryPattern = regexp.MustCompile(`name='([^']*)' and mimeType='[^']*' and '([^']*)' in parents`)

func (d *fakeDrive) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.Form.Get("grant_type"))
		assert.NotEmpty(t, r.Form.Get("assertion"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "test-token", "expires_in": 3600})
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		id := strings.TrimPrefix(r.URL.Path, "/files/")
		if id == "root-1" {
			json.NewEncoder(w).Encode(map[string]string{"id": id, "name": "Marketing"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
	})
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		d.mu.Lock()
		defer d.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			query := r.URL.Query().Get("q")
			match := driveQueryPattern.FindStringSubmatch(query)
			require.NotNil(t, match, "unexpected query %q", query)
			name, parent := match[1], match[2]

			files := []map[string]string{}
			if id, ok := d.folders[parent+"/"+name]; ok {
				files = append(files, map[string]string{"id": id, "name": name})
			}
			json.NewEncoder(w).Encode(map[string]any{"files": files})
		case http.MethodPost:
			var body struct {
				Name    string   `json:"name"`
				Parents []string `json:"parents"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Parents, 1)

			d.nextID++
			d.created++
			id := fmt.Sprintf("folder-%d", d.nextID)
			d.folders[body.Parents[0]+"/"+body.Name] = id
			d.createdNames = append(d.createdNames, body.Name)
			d.parents[id] = body.Parents[0]
			d.names[id] = body.Name
			json.NewEncoder(w).Encode(map[string]string{"id": id})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func testPrivateKeyPEM(t *testing.T) string {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return string(pem.EncodeToMemory(block))
}

func newTestDriveService(t *testing.T, store *fakeDriveClientStore) (*DriveService, *fakeDrive) {
	drive := &fakeDrive{
		folders: make(map[string]string),
		parents: make(map[string]string),
		names:   make(map[string]string),
	}
	server := httptest.NewServer(drive.handler(t))
	t.Cleanup(server.Close)

	svc := NewDriveService(store, DriveCredentials{
		ClientEmail: "sa@project.iam.gserviceaccount.com",
		PrivateKey:  testPrivateKeyPEM(t),
		TokenURI:    server.URL + "/token",
	}, "root-1")
	svc.apiBase = server.URL
	return svc, drive
}

// idByName returns the id of the first created folder with the given name.
func (d *fakeDrive) idByName(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, n := range d.names {
		if n == name {
			return id
		}
	}
	return ""
}

func (d *fakeDrive) parentNameOf(name string) string {
	id := d.idByName(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.names[d.parents[id]]
}

func (d *fakeDrive) childNamesOf(parentName string) []string {
	parentID := d.idByName(parentName)
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []string{}
	for id, parent := range d.parents {
		if parent == parentID {
			out = append(out, d.names[id])
		}
	}
	return out
}

func TestProvisionClientFoldersCreatesTree(t *testing.T) {
	store := &fakeDriveClientStore{}
	svc, drive := newTestDriveService(t, store)

	result, err := svc.ProvisionClientFolders(context.Background(), "client-1", "Padaria Central", "Alimentação",
		[]string{"Tráfego pago", "IA"})
	require.NoError(t, err)

	assert.False(t, result.AlreadyExisted)
	assert.NotEmpty(t, result.FolderID)
	assert.Equal(t, "https://drive.google.com/drive/folders/"+result.FolderID, result.FolderLink)

	year := fmt.Sprintf("%d", time.Now().Year())

	// Navigation levels sit in order under the shared root.
	assert.Equal(t, "root-1", drive.parents[drive.idByName("Marketing")])
	assert.Equal(t, "Marketing", drive.parentNameOf("Clientes"))
	assert.Equal(t, "Clientes", drive.parentNameOf("Alimentação"))
	assert.Equal(t, "Alimentação", drive.parentNameOf("Padaria Central"))

	// Standard folders, the creatives subtree and the service folders are
	// flat under the client; year leaves exist only inside the creatives
	// subfolders.
	assert.ElementsMatch(t,
		[]string{"[F] Informações", "[F] Estratégia", "Design/Criativos", "Tráfego pago", "IA"},
		drive.childNamesOf("Padaria Central"))
	assert.ElementsMatch(t, []string{"Materiais", "Conteúdo", "Anúncios", "Outros"},
		drive.childNamesOf("Design/Criativos"))
	for _, sub := range []string{"Materiais", "Conteúdo", "Anúncios", "Outros"} {
		assert.Equal(t, []string{year}, drive.childNamesOf(sub), "subfolder %s", sub)
	}
	assert.Empty(t, drive.childNamesOf("Tráfego pago"))
	assert.Empty(t, drive.childNamesOf("IA"))

	// Marketing, Clientes, segmento, client, 2 standard, Design/Criativos,
	// 4 subfolders, 4 year leaves, 2 services.
	assert.Equal(t, 17, drive.created)

	assert.Equal(t, "client-1", store.clientID)
	assert.Equal(t, result.FolderID, store.folderID)
	assert.Equal(t, result.FolderLink, store.folderLink)
}

func TestProvisionClientFoldersIsIdempotent(t *testing.T) {
	store := &fakeDriveClientStore{}
	svc, drive := newTestDriveService(t, store)

	first, err := svc.ProvisionClientFolders(context.Background(), "client-1", "Padaria Central", "Alimentação",
		[]string{"Produção de conteúdo"})
	require.NoError(t, err)
	createdFirst := drive.created

	second, err := svc.ProvisionClientFolders(context.Background(), "client-1", "Padaria Central", "Alimentação",
		[]string{"Produção de conteúdo"})
	require.NoError(t, err)

	assert.True(t, second.AlreadyExisted)
	assert.Equal(t, first.FolderID, second.FolderID)
	assert.Equal(t, createdFirst, drive.created, "second run must not create folders")
}

func TestProvisionWithoutClientIDSkipsPersistence(t *testing.T) {
	store := &fakeDriveClientStore{}
	svc, _ := newTestDriveService(t, store)

	result, err := svc.ProvisionClientFolders(context.Background(), "", "Padaria Central", "Alimentação", []string{"IA"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.FolderID)
	assert.Empty(t, store.clientID)
}

func TestDriveTestConnection(t *testing.T) {
	svc, _ := newTestDriveService(t, &fakeDriveClientStore{})

	name, err := svc.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Marketing", name)
}

func TestProvisionClientFoldersValidation(t *testing.T) {
	store := &fakeDriveClientStore{}
	svc, _ := newTestDriveService(t, store)
	ctx := context.Background()

	_, err := svc.ProvisionClientFolders(ctx, "client-1", "", "Alimentação", []string{"IA"})
	assert.Error(t, err)

	_, err = svc.ProvisionClientFolders(ctx, "client-1", "Padaria", "Alimentação", nil)
	assert.Error(t, err)

	_, err = svc.ProvisionClientFolders(ctx, "client-1", "Padaria", "Alimentação", []string{"Consultoria"})
	assert.Error(t, err)
	assert.Empty(t, store.clientID)
}
