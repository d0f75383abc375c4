package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/familypoints/internal/model"
)

// Evidence is one file attached to a submission. Open is called once per
// upload and the reader it returns is always closed.
type Evidence struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

type SubmitRequest struct {
	TaskID         int64
	Note           string
	BibleReference string
	Reflection     string
	Evidence       []Evidence
}

type submissionPayload struct {
	TaskID           int64    `json:"task_id"`
	Note             string   `json:"note,omitempty"`
	BibleReference   string   `json:"bible_reference,omitempty"`
	Reflection       string   `json:"reflection,omitempty"`
	EvidenceFilePath string   `json:"evidence_file_path,omitempty"`
	EvidenceFiles    []string `json:"evidence_files,omitempty"`
}

type UploadResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Upload stores one file and returns its URL as the server reports it,
// which may be server-relative. See ResolveURL.
func (c *Client) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/uploads"), &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp UploadResponse
	if err := c.send(req, c.session.Token(), &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", &ProtocolError{Msg: "upload response has no url"}
	}
	return resp.URL, nil
}

func (c *Client) uploadEvidence(ctx context.Context, ev Evidence) (string, error) {
	rc, err := ev.Open()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer rc.Close()
	return c.Upload(ctx, ev.Name, ev.ContentType, rc)
}

// uploadAll uploads every file concurrently and waits for all of them. The
// URLs keep the input order. Any failure fails the whole batch.
func (c *Client) uploadAll(ctx context.Context, files []Evidence) ([]string, error) {
	urls := make([]string, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	for i, ev := range files {
		g.Go(func() error {
			u, err := c.uploadEvidence(ctx, ev)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", ev.Name, err)
				return errs[i]
			}
			urls[i] = u
			return nil
		})
	}
	g.Wait()

	var failed []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, files[i].Name)
		}
	}
	if len(failed) > 0 {
		return nil, &UploadError{Files: failed, Err: multierr.Combine(errs...)}
	}
	return urls, nil
}

// Submit uploads the evidence and then creates the submission. If any upload
// fails nothing is submitted. The created submission is always PENDING.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*model.Submission, error) {
	urls, err := c.uploadAll(ctx, req.Evidence)
	if err != nil {
		c.logger.Warn("evidence upload failed", "task_id", req.TaskID, "error", err)
		return nil, err
	}

	payload := submissionPayload{
		TaskID:         req.TaskID,
		Note:           strings.TrimSpace(req.Note),
		BibleReference: strings.TrimSpace(req.BibleReference),
		Reflection:     strings.TrimSpace(req.Reflection),
		EvidenceFiles:  urls,
	}
	if len(urls) > 0 {
		payload.EvidenceFilePath = urls[0]
	}

	var sub model.Submission
	if err := c.do(ctx, http.MethodPost, "/submissions", payload, &sub); err != nil {
		return nil, err
	}
	if sub.Status != model.StatusPending {
		return nil, &ProtocolError{Msg: fmt.Sprintf("new submission has status %q", sub.Status)}
	}
	return &sub, nil
}
