package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

// DefaultAzureContainer is the container the album has always used.
const DefaultAzureContainer = "family-album-media"

// AzureConfig holds Azure Blob Storage settings.
type AzureConfig struct {
	Account   string
	Key       string
	Container string
	// ServiceURL overrides https://<account>.blob.core.windows.net/, e.g.
	// for Azurite.
	ServiceURL string
}

// Azure stores objects as block blobs in one container.
type Azure struct {
	container *container.Client
}

// NewAzure creates an Azure Blob backend using shared key credentials.
func NewAzure(cfg AzureConfig) (*Azure, error) {
	if cfg.Account == "" || cfg.Key == "" {
		return nil, fmt.Errorf("azure storage account and key are required")
	}
	if cfg.Container == "" {
		cfg.Container = DefaultAzureContainer
	}
	serviceURL := cfg.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.Account)
	}
	if !strings.HasSuffix(serviceURL, "/") {
		serviceURL += "/"
	}

	cred, err := azblob.NewSharedKeyCredential(cfg.Account, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("create azure credential: %w", err)
	}

	opts := &container.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: 3, TryTimeout: time.Minute},
		},
	}
	client, err := container.NewClientWithSharedKeyCredential(serviceURL+cfg.Container, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("create container client: %w", err)
	}
	return &Azure{container: client}, nil
}

func isAzureNotFound(err error) bool {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
		return true
	}
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

func (a *Azure) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.Properties(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *Azure) Properties(ctx context.Context, key string) (Properties, error) {
	resp, err := a.container.NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return Properties{}, notFound(key)
		}
		return Properties{}, fmt.Errorf("get properties %s: %w", key, err)
	}

	props := Properties{}
	if resp.ContentLength != nil {
		props.Size = *resp.ContentLength
	}
	if resp.ContentType != nil {
		props.ContentType = *resp.ContentType
	}
	if resp.LastModified != nil {
		props.LastModified = *resp.LastModified
	}
	return props, nil
}

func (a *Azure) Download(ctx context.Context, key string, rng *ByteRange) ([]byte, error) {
	body, err := a.Open(ctx, key, rng)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

func (a *Azure) Open(ctx context.Context, key string, rng *ByteRange) (io.ReadCloser, error) {
	var opts *blob.DownloadStreamOptions
	if rng != nil {
		opts = &blob.DownloadStreamOptions{
			Range: blob.HTTPRange{Offset: rng.Start, Count: rng.Length()},
		}
	}

	resp, err := a.container.NewBlobClient(key).DownloadStream(ctx, opts)
	if err != nil {
		if isAzureNotFound(err) {
			return nil, notFound(key)
		}
		if bloberror.HasCode(err, bloberror.InvalidRange) {
			return nil, fmt.Errorf("%s: %w", key, ErrInvalidRange)
		}
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return resp.Body, nil
}

func (a *Azure) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	client := a.container.NewBlockBlobClient(key)
	_, err := client.UploadBuffer(ctx, data, &blockblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return client.URL(), nil
}

func (a *Azure) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	u, err := a.container.NewBlobClient(key).GetSASURL(sas.BlobPermissions{Read: true}, time.Now().Add(ttl), nil)
	if err != nil {
		return "", fmt.Errorf("sas url %s: %w", key, err)
	}
	return u, nil
}

func (a *Azure) Type() string { return "azure" }
