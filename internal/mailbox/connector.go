package mailbox

import "context"

// Connector is the integration point for email providers. Implementations must
// be safe for concurrent use; the pipeline downloads attachments from multiple
// goroutines.
type Connector interface {
	// ListEmails returns summaries matching the criteria. Order is unspecified.
	ListEmails(ctx context.Context, criteria ListCriteria) ([]EmailSummary, error)
	// DownloadAttachment fetches the bytes for one attachment of one email.
	DownloadAttachment(ctx context.Context, emailID, attachmentID string) ([]byte, error)
}
