package mlflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/databricks/databricks-sdk-go/httpclient"
)

const dbfsTrackingPrefix = "dbfs:/databricks/mlflow-tracking/"

type credentialsForWriteRequest struct {
	RunID string   `json:"run_id"`
	Path  []string `json:"path"`
}

type credentialsForWriteResponse struct {
	CredentialInfos []artifactCredentialInfo `json:"credential_infos"`
}

// artifactCredentialInfo is a presigned cloud storage URL for one artifact.
type artifactCredentialInfo struct {
	RunID     string       `json:"run_id"`
	Path      string       `json:"path"`
	SignedURI string       `json:"signed_uri"`
	Headers   []httpHeader `json:"headers"`
	Type      string       `json:"type"`
}

type httpHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UploadArtifact uploads filePath under artifactPath in the run's artifact
// store. An empty artifactPath keeps the file name.
func (c *Client) UploadArtifact(ctx context.Context, runID, filePath, artifactPath string) error {
	run, err := c.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get artifact URI: %w", err)
	}
	if run.ArtifactURI == "" {
		return fmt.Errorf("artifact URI not found for run %s", runID)
	}

	if artifactPath == "" {
		artifactPath = filepath.Base(filePath)
	}

	return c.uploadToStorage(ctx, run.ArtifactURI, filePath, artifactPath)
}

func (c *Client) uploadToStorage(ctx context.Context, artifactURI, filePath, artifactPath string) error {
	switch {
	case strings.HasPrefix(artifactURI, "mlflow-artifacts:"):
		return c.uploadToMLflowArtifacts(ctx, artifactURI, filePath, artifactPath)
	case strings.HasPrefix(artifactURI, "dbfs:/"):
		return c.uploadToDBFS(ctx, artifactURI, filePath, artifactPath)
	case strings.HasPrefix(artifactURI, "file://"), strings.HasPrefix(artifactURI, "/"):
		return uploadToLocalFS(strings.TrimPrefix(artifactURI, "file://"), filePath, artifactPath)
	default:
		return fmt.Errorf("unsupported artifact URI scheme: %s", artifactURI)
	}
}

// artifactsURL maps mlflow-artifacts:/<experiment>/<run>/artifacts onto the
// tracking server's artifacts service endpoint.
func artifactsURL(trackingURI, artifactURI, artifactPath string) (string, error) {
	rest := strings.Trim(strings.TrimPrefix(artifactURI, "mlflow-artifacts:"), "/")
	// A host may be embedded: mlflow-artifacts://host:port/<experiment>/...
	if u, err := url.Parse(artifactURI); err == nil && u.Host != "" {
		rest = strings.Trim(u.Path, "/")
	}

	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid mlflow-artifacts URI format: %s", artifactURI)
	}

	return fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s",
		strings.TrimSuffix(trackingURI, "/"), path.Join(rest, artifactPath)), nil
}

func (c *Client) uploadToMLflowArtifacts(ctx context.Context, artifactURI, filePath, artifactPath string) error {
	target, err := artifactsURL(c.config.TrackingURI, artifactURI, artifactPath)
	if err != nil {
		return err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, file)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload to MLflow Artifacts Service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("MLflow Artifacts Service upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func uploadToLocalFS(root, filePath, artifactPath string) error {
	dest := filepath.Join(root, filepath.FromSlash(artifactPath))

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(dest), err)
	}

	src, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	return dst.Close()
}

// addAuthHeaders authenticates requests to a Databricks workspace
func (c *Client) addAuthHeaders(req *http.Request) {
	if !c.config.IsDatabricks() {
		return
	}
	if c.client != nil && c.client.Config != nil && c.client.Config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.client.Config.Token)
	} else if c.config.DatabricksToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.DatabricksToken)
	}
}

// dbfsRunID extracts the run ID from
// dbfs:/databricks/mlflow-tracking/<experiment_id>/<run_id>/artifacts.
func dbfsRunID(artifactURI string) (string, error) {
	if !strings.HasPrefix(artifactURI, dbfsTrackingPrefix) {
		return "", fmt.Errorf("invalid DBFS artifact URI format: %s", artifactURI)
	}

	parts := strings.Split(strings.TrimPrefix(artifactURI, dbfsTrackingPrefix), "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("run ID not found in DBFS URI: %s", artifactURI)
	}
	return parts[1], nil
}

// uploadToDBFS asks the workspace for a presigned URL and uploads to it
func (c *Client) uploadToDBFS(ctx context.Context, artifactURI, filePath, artifactPath string) error {
	runID, err := dbfsRunID(artifactURI)
	if err != nil {
		return err
	}

	credentials, err := c.credentialsForWrite(ctx, runID, []string{artifactPath})
	if err != nil {
		return fmt.Errorf("failed to get write credentials: %w", err)
	}
	if len(credentials) == 0 {
		return fmt.Errorf("no credentials returned for path: %s", artifactPath)
	}

	if err := c.uploadToSignedURI(ctx, credentials[0], filePath); err != nil {
		return fmt.Errorf("failed to upload to %s signed URI: %w", credentials[0].Type, err)
	}
	return nil
}

func (c *Client) credentialsForWrite(ctx context.Context, runID string, paths []string) ([]artifactCredentialInfo, error) {
	if c.apiClient == nil {
		return nil, fmt.Errorf("DBFS artifacts require a Databricks tracking URI")
	}

	var response credentialsForWriteResponse
	err := c.apiClient.Do(ctx, http.MethodPost, "/api/2.0/mlflow/artifacts/credentials-for-write",
		httpclient.WithRequestData(credentialsForWriteRequest{RunID: runID, Path: paths}),
		httpclient.WithResponseUnmarshal(&response),
	)
	if err != nil {
		return nil, fmt.Errorf("credentials-for-write request failed: %w", err)
	}
	return response.CredentialInfos, nil
}

// signedURIRequest builds the PUT for a presigned URL. Cloud providers need
// an explicit length and some need provider specific headers.
func signedURIRequest(ctx context.Context, credential artifactCredentialInfo, body io.Reader, contentLength int64) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, credential.SignedURI, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.ContentLength = contentLength
	req.Header.Set("Content-Type", "application/octet-stream")
	if credential.Type == "AZURE_SAS_URI" {
		req.Header.Set("x-ms-blob-type", "BlockBlob")
	}

	for _, header := range credential.Headers {
		req.Header.Set(header.Name, header.Value)
	}
	return req, nil
}

func (c *Client) uploadToSignedURI(ctx context.Context, credential artifactCredentialInfo, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := signedURIRequest(ctx, credential, file, info.Size())
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload to signed URI: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("signed URI upload failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
