package mailbox

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Attachment is a single file delivered with an email. Immutable once received.
type Attachment struct {
	ID          string
	Filename    string
	Content     []byte
	Size        int64
	ContentType string
}

// Fingerprint returns the stable content hash used for duplicate detection,
// keyed with the filename so renamed copies of a shared template still file.
func (a Attachment) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(a.Filename))
	h.Write([]byte{0})
	h.Write(a.Content)
	return hex.EncodeToString(h.Sum(nil))
}

// EmailContext carries everything the identification engine may read about one
// email. Produced by a connector, consumed read-only.
type EmailContext struct {
	ID          string
	Sender      string
	Subject     string
	BodyExcerpt string
	ReceivedAt  time.Time
	Attachments []Attachment
}

// AttachmentRef describes an attachment before its bytes are downloaded.
type AttachmentRef struct {
	ID          string
	Filename    string
	Size        int64
	ContentType string
}

// EmailSummary is the connector's listing shape; attachment bytes are fetched
// separately via DownloadAttachment.
type EmailSummary struct {
	ID          string
	Sender      string
	Subject     string
	BodyExcerpt string
	ReceivedAt  time.Time
	Attachments []AttachmentRef
}

// ListCriteria filters connector listings.
type ListCriteria struct {
	// Since is the lower bound on received time. Zero means unbounded.
	Since time.Time
	// RequireAttachments skips emails without attachments.
	RequireAttachments bool
}
