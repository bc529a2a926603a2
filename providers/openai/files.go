package openai

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/petal-labs/oai/core"
	"github.com/petal-labs/oai/internal/form"
	"github.com/petal-labs/oai/internal/transport"
)

const filesPath = "/files"

// UploadFile uploads a file.
func (c *Client) UploadFile(ctx context.Context, req *FileUploadRequest) (*File, error) {
	if req == nil || req.File == nil {
		return nil, core.NewValidationError("file is required")
	}
	if req.Filename == "" {
		return nil, core.NewValidationError("filename is required")
	}
	if req.Purpose == "" {
		return nil, core.NewValidationError("purpose is required")
	}

	b := form.New().Field("purpose", string(req.Purpose))
	if req.ExpiresAfter != nil {
		b.Field("expires_after[anchor]", req.ExpiresAfter.Anchor).
			Field("expires_after[seconds]", strconv.Itoa(req.ExpiresAfter.Seconds))
	}
	b.File("file", req.Filename, req.File)

	var file File
	if err := c.postForm(ctx, operation{name: "files.create"}, filesPath, b, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListFiles returns a page of files. req may be nil.
func (c *Client) ListFiles(ctx context.Context, req *FileListRequest) (*FileList, error) {
	query := url.Values{}
	if req != nil {
		if req.Purpose != "" {
			query.Set("purpose", string(req.Purpose))
		}
		if req.Limit > 0 {
			query.Set("limit", strconv.Itoa(req.Limit))
		}
		if req.After != "" {
			query.Set("after", req.After)
		}
		if req.Order != "" {
			query.Set("order", req.Order)
		}
	}

	var list FileList
	err := c.doJSON(ctx, operation{name: "files.list"}, &transport.Request{
		Method: http.MethodGet,
		Path:   filesPath,
		Query:  query,
	}, &list)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// RetrieveFile returns information about a file.
func (c *Client) RetrieveFile(ctx context.Context, fileID string) (*File, error) {
	if fileID == "" {
		return nil, core.NewValidationError("file id is required")
	}

	var file File
	err := c.doJSON(ctx, operation{name: "files.retrieve"}, &transport.Request{
		Method: http.MethodGet,
		Path:   filesPath + "/" + url.PathEscape(fileID),
	}, &file)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// DeleteFile deletes a file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) (*FileDeleted, error) {
	if fileID == "" {
		return nil, core.NewValidationError("file id is required")
	}

	var result FileDeleted
	err := c.doJSON(ctx, operation{name: "files.delete"}, &transport.Request{
		Method: http.MethodDelete,
		Path:   filesPath + "/" + url.PathEscape(fileID),
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RetrieveFileContent downloads the content of a file.
func (c *Client) RetrieveFileContent(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, core.NewValidationError("file id is required")
	}
	return c.doRaw(ctx, operation{name: "files.content"}, &transport.Request{
		Method: http.MethodGet,
		Path:   filesPath + "/" + url.PathEscape(fileID) + "/content",
		Accept: "*/*",
	})
}
