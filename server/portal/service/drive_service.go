package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/techfranca/francaverso/server/common/log"
	"github.com/techfranca/francaverso/server/portal/domain"
)

const (
	driveFolderMIME = "application/vnd.google-apps.folder"
	driveScope      = "https://www.googleapis.com/auth/drive"
	driveAPIBase    = "https://www.googleapis.com/drive/v3"
	driveTokenURL   = "https://oauth2.googleapis.com/token"
)

// driveServiceFolders are the deliverable areas a client can contract; each
// selected one becomes a folder in the client's tree.
var driveServiceFolders = map[string]bool{
	"Tráfego pago":         true,
	"Produção de conteúdo": true,
	"IA":                   true,
}

// DriveCredentials is the service-account key material, loaded from the JSON
// key file's fields.
type DriveCredentials struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// DriveClientStore persists the provisioned folder onto the client row.
type DriveClientStore interface {
	SetDriveFolder(ctx context.Context, id, folderID, folderLink string) error
}

// ProvisionResult reports where the client's folder lives and whether it was
// created by this call or found already in place.
type ProvisionResult struct {
	FolderID       string `json:"folderId"`
	FolderLink     string `json:"folderLink"`
	AlreadyExisted bool   `json:"alreadyExisted"`
}

// standardClientFolders are created flat under every new client folder.
var standardClientFolders = []string{"[F] Informações", "[F] Estratégia"}

// designSubfolders live under Design/Criativos, each holding the current-year
// folder.
var designSubfolders = []string{"Materiais", "Conteúdo", "Anúncios", "Outros"}

// DriveService provisions the standard Google Drive folder tree for a client:
// <root>/Marketing/Clientes/<segmento>/<client>, the client folder holding
// the standard folders, the Design/Criativos subtree with year leaves and one
// flat folder per contracted service. Navigation levels are find-or-create;
// an existing client folder short-circuits before any substructure is built.
type DriveService struct {
	clients    DriveClientStore
	creds      DriveCredentials
	rootID     string
	httpClient *http.Client
	apiBase    string
	tokenURL   string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewDriveService(clients DriveClientStore, creds DriveCredentials, rootFolderID string) *DriveService {
	tokenURL := creds.TokenURI
	if tokenURL == "" {
		tokenURL = driveTokenURL
	}
	return &DriveService{
		clients:    clients,
		creds:      creds,
		rootID:     rootFolderID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiBase:    driveAPIBase,
		tokenURL:   tokenURL,
	}
}

// TestConnection fetches the root folder's metadata, proving the credentials
// and the shared folder are usable.
func (s *DriveService) TestConnection(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/files/%s?fields=%s&supportsAllDrives=true",
		s.apiBase, url.PathEscape(s.rootID), url.QueryEscape("id,name"))

	var out struct {
		Name string `json:"name"`
	}
	if err := s.doJSON(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return "", fmt.Errorf("fetch root folder: %w", err)
	}
	return out.Name, nil
}

// ProvisionClientFolders builds the client's folder tree and, when a client
// id is given, records the folder on the client row. Calling it again for the
// same client finds the existing tree and reports alreadyExisted.
func (s *DriveService) ProvisionClientFolders(ctx context.Context, clientID, clientName, segmento string, services []string) (ProvisionResult, error) {
	clientName = strings.TrimSpace(clientName)
	segmento = strings.TrimSpace(segmento)
	if clientName == "" {
		return ProvisionResult{}, fmt.Errorf("%w: client name is required", domain.ErrInvalidInput)
	}
	if segmento == "" {
		segmento = "Outros"
	}
	if len(services) == 0 {
		return ProvisionResult{}, fmt.Errorf("%w: at least one service is required", domain.ErrInvalidInput)
	}
	for _, service := range services {
		if !driveServiceFolders[service] {
			return ProvisionResult{}, fmt.Errorf("%w: unknown service %q", domain.ErrInvalidInput, service)
		}
	}

	marketingID, _, err := s.ensureFolder(ctx, "Marketing", s.rootID)
	if err != nil {
		return ProvisionResult{}, err
	}
	clientesID, _, err := s.ensureFolder(ctx, "Clientes", marketingID)
	if err != nil {
		return ProvisionResult{}, err
	}
	segmentoID, _, err := s.ensureFolder(ctx, segmento, clientesID)
	if err != nil {
		return ProvisionResult{}, err
	}

	if existingID, found, err := s.findFolder(ctx, clientName, segmentoID); err != nil {
		return ProvisionResult{}, err
	} else if found {
		link := "https://drive.google.com/drive/folders/" + existingID
		if clientID != "" {
			if err := s.clients.SetDriveFolder(ctx, clientID, existingID, link); err != nil {
				return ProvisionResult{}, err
			}
		}
		log.Infof("drive folder for client %s already in place", clientID)
		return ProvisionResult{FolderID: existingID, FolderLink: link, AlreadyExisted: true}, nil
	}

	clientFolderID, err := s.createFolder(ctx, clientName, segmentoID)
	if err != nil {
		return ProvisionResult{}, err
	}

	for _, name := range standardClientFolders {
		if _, _, err := s.ensureFolder(ctx, name, clientFolderID); err != nil {
			return ProvisionResult{}, err
		}
	}

	designID, _, err := s.ensureFolder(ctx, "Design/Criativos", clientFolderID)
	if err != nil {
		return ProvisionResult{}, err
	}
	year := fmt.Sprintf("%d", time.Now().Year())
	for _, sub := range designSubfolders {
		subID, _, err := s.ensureFolder(ctx, sub, designID)
		if err != nil {
			return ProvisionResult{}, err
		}
		if _, _, err := s.ensureFolder(ctx, year, subID); err != nil {
			return ProvisionResult{}, err
		}
	}

	for _, service := range services {
		if _, _, err := s.ensureFolder(ctx, service, clientFolderID); err != nil {
			return ProvisionResult{}, err
		}
	}

	link := "https://drive.google.com/drive/folders/" + clientFolderID
	if clientID != "" {
		if err := s.clients.SetDriveFolder(ctx, clientID, clientFolderID, link); err != nil {
			return ProvisionResult{}, err
		}
	}

	log.Infof("drive folders provisioned for client %s", clientID)
	return ProvisionResult{FolderID: clientFolderID, FolderLink: link, AlreadyExisted: false}, nil
}

// ensureFolder finds a folder by name under a parent, creating it when
// missing. The second return reports whether it already existed.
func (s *DriveService) ensureFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	id, found, err := s.findFolder(ctx, name, parentID)
	if err != nil {
		return "", false, err
	}
	if found {
		return id, true, nil
	}
	id, err = s.createFolder(ctx, name, parentID)
	if err != nil {
		return "", false, err
	}
	return id, false, nil
}

func (s *DriveService) findFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	escaped := strings.ReplaceAll(name, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	query := fmt.Sprintf("name='%s' and mimeType='%s' and '%s' in parents and trashed=false",
		escaped, driveFolderMIME, parentID)

	endpoint := fmt.Sprintf("%s/files?q=%s&fields=%s&supportsAllDrives=true&includeItemsFromAllDrives=true",
		s.apiBase, url.QueryEscape(query), url.QueryEscape("files(id,name)"))

	var out struct {
		Files []struct {
			ID string `json:"id"`
		} `json:"files"`
	}
	if err := s.doJSON(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return "", false, fmt.Errorf("find folder %q: %w", name, err)
	}
	if len(out.Files) == 0 {
		return "", false, nil
	}
	return out.Files[0].ID, true, nil
}

func (s *DriveService) createFolder(ctx context.Context, name, parentID string) (string, error) {
	body := map[string]any{
		"name":     name,
		"mimeType": driveFolderMIME,
		"parents":  []string{parentID},
	}
	var out struct {
		ID string `json:"id"`
	}
	endpoint := s.apiBase + "/files?supportsAllDrives=true"
	if err := s.doJSON(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return out.ID, nil
}

func (s *DriveService) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("drive api %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// accessToken exchanges a signed service-account assertion for a bearer
// token, cached until shortly before expiry.
func (s *DriveService) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.tokenExp) {
		return s.token, nil
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(s.creds.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse service account key: %w", err)
	}

	now := time.Now()
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   s.creds.ClientEmail,
		"scope": driveScope,
		"aud":   s.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token exchange %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no token")
	}

	s.token = tokenResp.AccessToken
	s.tokenExp = now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second).Add(-time.Minute)
	return s.token, nil
}
