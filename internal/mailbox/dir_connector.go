package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pigeonhole/internal/services"
)

const bodyExcerptLimit = 2000

// DirConnector reads RFC 5322 messages from a maildir-style drop directory.
// Each .eml file is one email; the file name (without extension) is the email
// id. It exists so runs are executable end to end without a provider account;
// hosted providers plug in behind the same Connector interface.
type DirConnector struct {
	dir string
}

// NewDirConnector creates a connector rooted at dir.
func NewDirConnector(dir string) *DirConnector {
	return &DirConnector{dir: dir}
}

// ListEmails scans the directory for .eml files matching the criteria.
func (c *DirConnector) ListEmails(ctx context.Context, criteria ListCriteria) ([]EmailSummary, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "mailbox", "list emails", fmt.Sprintf("read mail directory %s", c.dir), err)
	}

	var summaries []EmailSummary
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".eml") {
			continue
		}
		email, err := c.parseFile(entry.Name())
		if err != nil {
			// A malformed message must not hide the rest of the mailbox.
			continue
		}
		if !criteria.Since.IsZero() && email.ReceivedAt.Before(criteria.Since) {
			continue
		}
		if criteria.RequireAttachments && len(email.Attachments) == 0 {
			continue
		}
		summaries = append(summaries, summaryOf(email))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ReceivedAt.Before(summaries[j].ReceivedAt)
	})
	return summaries, nil
}

// DownloadAttachment returns the decoded bytes for one attachment.
func (c *DirConnector) DownloadAttachment(ctx context.Context, emailID, attachmentID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email, err := c.parseFile(emailID + ".eml")
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "mailbox", "download attachment", fmt.Sprintf("parse email %s", emailID), err)
	}
	for _, att := range email.Attachments {
		if att.ID == attachmentID {
			return att.Content, nil
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "mailbox", "download attachment", fmt.Sprintf("attachment %s not found in email %s", attachmentID, emailID), nil)
}

// Read parses a full EmailContext, used by tests and by callers that already
// hold the email id.
func (c *DirConnector) Read(emailID string) (*EmailContext, error) {
	return c.parseFile(emailID + ".eml")
}

func (c *DirConnector) parseFile(name string) (*EmailContext, error) {
	path := filepath.Join(c.dir, name)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open message: %w", err)
	}
	defer file.Close()

	msg, err := mail.ReadMessage(file)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	email := &EmailContext{
		ID:      strings.TrimSuffix(name, filepath.Ext(name)),
		Subject: decodeHeader(msg.Header.Get("Subject")),
	}
	if addr, err := mail.ParseAddress(msg.Header.Get("From")); err == nil {
		email.Sender = addr.Address
	} else {
		email.Sender = strings.TrimSpace(msg.Header.Get("From"))
	}
	if date, err := msg.Header.Date(); err == nil {
		email.ReceivedAt = date
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		body, _ := io.ReadAll(io.LimitReader(msg.Body, bodyExcerptLimit))
		email.BodyExcerpt = strings.TrimSpace(string(body))
		return email, nil
	}

	reader := multipart.NewReader(msg.Body, params["boundary"])
	index := 0
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read part: %w", err)
		}
		index++
		if err := consumePart(email, part, index); err != nil {
			return nil, err
		}
	}
	return email, nil
}

func consumePart(email *EmailContext, part *multipart.Part, index int) error {
	defer part.Close()

	partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
	filename := decodeHeader(part.FileName())

	if filename == "" {
		if strings.HasPrefix(partType, "text/plain") && email.BodyExcerpt == "" {
			body, err := io.ReadAll(io.LimitReader(decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding")), bodyExcerptLimit))
			if err != nil {
				return fmt.Errorf("read body part: %w", err)
			}
			email.BodyExcerpt = strings.TrimSpace(string(body))
		}
		return nil
	}

	content, err := io.ReadAll(decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding")))
	if err != nil {
		return fmt.Errorf("read attachment %s: %w", filename, err)
	}
	if partType == "" {
		partType = "application/octet-stream"
	}
	email.Attachments = append(email.Attachments, Attachment{
		ID:          fmt.Sprintf("p%d", index),
		Filename:    filename,
		Content:     content,
		Size:        int64(len(content)),
		ContentType: partType,
	})
	return nil
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newWhitespaceStripper(r))
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

func decodeHeader(value string) string {
	decoder := new(mime.WordDecoder)
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func summaryOf(email *EmailContext) EmailSummary {
	summary := EmailSummary{
		ID:          email.ID,
		Sender:      email.Sender,
		Subject:     email.Subject,
		BodyExcerpt: email.BodyExcerpt,
		ReceivedAt:  email.ReceivedAt,
	}
	for _, att := range email.Attachments {
		summary.Attachments = append(summary.Attachments, AttachmentRef{
			ID:          att.ID,
			Filename:    att.Filename,
			Size:        att.Size,
			ContentType: att.ContentType,
		})
	}
	return summary
}

// whitespaceStripper removes line breaks so base64 bodies decode regardless of
// wrapping.
type whitespaceStripper struct {
	r io.Reader
}

func newWhitespaceStripper(r io.Reader) io.Reader {
	return &whitespaceStripper{r: r}
}

func (w *whitespaceStripper) Read(p []byte) (int, error) {
	buf := make([]byte, len(p))
	n, err := w.r.Read(buf)
	out := 0
	for _, b := range buf[:n] {
		if b == '\r' || b == '\n' || b == ' ' || b == '\t' {
			continue
		}
		p[out] = b
		out++
	}
	if out == 0 && err == nil && n > 0 {
		return w.Read(p)
	}
	return out, err
}
